// Package gatekeeper decides whether a filesystem path is eligible for
// indexing: a Markdown file outside any package/data/hidden directory.
package gatekeeper

import (
	"os"
	"path/filepath"
	"strings"

	"notebit/pkg/packagedir"
)

// Gatekeeper holds the one piece of state the eligibility predicates need:
// the application's own data directory, which must never be indexed even
// if it happens to live inside a watched tree.
type Gatekeeper struct {
	dataDir      string
	extraIgnored map[string]struct{}
}

// New creates a Gatekeeper. extraIgnoredDirNames adds ancestor directory
// names treated as package directories beyond the built-in set.
func New(dataDir string, extraIgnoredDirNames []string) *Gatekeeper {
	extra := make(map[string]struct{}, len(extraIgnoredDirNames))
	for _, name := range extraIgnoredDirNames {
		extra[name] = struct{}{}
	}
	return &Gatekeeper{dataDir: dataDir, extraIgnored: extra}
}

// IsEligible reports whether path is an indexable Markdown file: it must
// currently exist as a regular file, in addition to every condition
// IsEligibleIfFileExists checks.
func (g *Gatekeeper) IsEligible(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return g.IsEligibleIfFileExists(path)
}

// IsEligibleIfFileExists checks every eligibility condition except actual
// file existence, for callers reacting to a Removed event where the file is
// already gone.
func (g *Gatekeeper) IsEligibleIfFileExists(path string) bool {
	return filepath.Ext(path) == ".md" &&
		!g.isUnderPackageDir(path) &&
		!g.isUnderDataDir(path) &&
		!isHidden(path) &&
		!(isUnderLibraryDir(path) && !isMobileDocuments(path))
}

// IsPackageDir reports whether path is itself a package directory (npm,
// bower, bundler, composer, chef, cocoapods, python, or one of the caller's
// extra ignored names) rather than checking its ancestors. Callers walking
// a tree use this to decide whether to skip descending into a directory at
// all, instead of re-testing every file beneath it against IsEligible.
func (g *Gatekeeper) IsPackageDir(path string) bool {
	return g.isPackageDir(path)
}

func (g *Gatekeeper) isUnderPackageDir(path string) bool {
	for {
		if g.isPackageDir(path) {
			return true
		}
		parent := filepath.Dir(path)
		if parent == path {
			return false
		}
		path = parent
	}
}

func (g *Gatekeeper) isPackageDir(path string) bool {
	if packagedir.IsNpmPackageDir(path) ||
		packagedir.IsBowerPackageDir(path) ||
		packagedir.IsPythonPackageDir(path) ||
		packagedir.IsBundlerPackageDir(path) ||
		packagedir.IsComposerPackageDir(path) ||
		packagedir.IsChefCookbookDir(path) ||
		packagedir.IsCocoapodsPodsDir(path) {
		return true
	}
	_, ignored := g.extraIgnored[filepath.Base(path)]
	return ignored
}

func (g *Gatekeeper) isUnderDataDir(path string) bool {
	if g.dataDir == "" {
		return false
	}
	return isPathUnder(path, g.dataDir)
}

// isMobileDocuments reports whether path is under the macOS iCloud Drive
// mirror ~/Library/Mobile Documents, the one exception carved out of the
// otherwise blanket exclusion of ~/Library.
func isMobileDocuments(path string) bool {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return false
	}
	return isPathUnder(path, filepath.Join(home, "Library", "Mobile Documents"))
}

func isUnderLibraryDir(path string) bool {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return false
	}
	return isPathUnder(path, filepath.Join(home, "Library"))
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func isPathUnder(path, ancestor string) bool {
	rel, err := filepath.Rel(ancestor, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && rel != "")
}
