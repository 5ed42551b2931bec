// Package packagedir classifies directories that hold a language
// ecosystem's installed dependencies, so the indexer can skip them.
package packagedir

import (
	"os"
	"path/filepath"
	"strings"
)

// IsNpmPackageDir reports whether path is an npm node_modules directory.
func IsNpmPackageDir(path string) bool {
	return filepath.Base(path) == "node_modules"
}

// IsBowerPackageDir reports whether path is a Bower bower_components directory.
func IsBowerPackageDir(path string) bool {
	return filepath.Base(path) == "bower_components"
}

// IsChefCookbookDir reports whether path is a Chef cookbooks/site-cookbooks directory.
func IsChefCookbookDir(path string) bool {
	base := filepath.Base(path)
	return base == "cookbooks" || base == "site-cookbooks"
}

// IsCocoapodsPodsDir reports whether path is a CocoaPods Pods directory.
func IsCocoapodsPodsDir(path string) bool {
	return filepath.Base(path) == "Pods"
}

// IsBundlerPackageDir reports whether path is Bundler's vendor directory:
// named "vendor" with a sibling Gemfile in its parent.
func IsBundlerPackageDir(path string) bool {
	return isSiblingVendorDir(path, "Gemfile")
}

// IsComposerPackageDir reports whether path is Composer's vendor directory:
// named "vendor" with a sibling composer.json in its parent.
func IsComposerPackageDir(path string) bool {
	return isSiblingVendorDir(path, "composer.json")
}

func isSiblingVendorDir(path, marker string) bool {
	if filepath.Base(path) != "vendor" {
		return false
	}
	parent := filepath.Dir(path)
	if parent == path {
		return false
	}
	return isFile(filepath.Join(parent, marker))
}

// IsPythonPackageDir reports whether path is a Python site-packages
// directory nested directly under a pythonX.Y interpreter directory.
func IsPythonPackageDir(path string) bool {
	if filepath.Base(path) != "site-packages" {
		return false
	}
	parent := filepath.Dir(path)
	if parent == path {
		return false
	}
	if !isDir(parent) {
		return false
	}
	return strings.HasPrefix(filepath.Base(parent), "python")
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
