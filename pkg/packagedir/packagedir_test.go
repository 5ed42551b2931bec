package packagedir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNpmPackageDir(t *testing.T) {
	assert.True(t, IsNpmPackageDir("/a/b/node_modules"))
	assert.True(t, IsNpmPackageDir("/node_modules"))
	assert.True(t, IsNpmPackageDir("./node_modules"))
	assert.True(t, IsNpmPackageDir("../node_modules"))
	assert.False(t, IsNpmPackageDir("/a/b"))
}

func TestIsBowerPackageDir(t *testing.T) {
	assert.True(t, IsBowerPackageDir("/a/b/bower_components"))
	assert.False(t, IsBowerPackageDir("/a/b"))
}

func TestIsChefCookbookDir(t *testing.T) {
	assert.True(t, IsChefCookbookDir("/a/b/cookbooks"))
	assert.True(t, IsChefCookbookDir("/site-cookbooks"))
	assert.False(t, IsChefCookbookDir("/a/b"))
}

func TestIsCocoapodsPodsDir(t *testing.T) {
	assert.True(t, IsCocoapodsPodsDir("/a/b/Pods"))
	assert.False(t, IsCocoapodsPodsDir("/a/b"))
}

func TestIsBundlerPackageDir(t *testing.T) {
	dir := t.TempDir()
	vendor := filepath.Join(dir, "vendor")
	require.NoError(t, os.Mkdir(vendor, 0755))

	assert.False(t, IsBundlerPackageDir(vendor), "no Gemfile yet")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Gemfile"), nil, 0644))
	assert.True(t, IsBundlerPackageDir(vendor))

	assert.False(t, IsBundlerPackageDir(dir))
}

func TestIsComposerPackageDir(t *testing.T) {
	dir := t.TempDir()
	vendor := filepath.Join(dir, "vendor")
	require.NoError(t, os.Mkdir(vendor, 0755))

	assert.False(t, IsComposerPackageDir(vendor), "no composer.json yet")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "composer.json"), nil, 0644))
	assert.True(t, IsComposerPackageDir(vendor))
}

func TestIsPythonPackageDir(t *testing.T) {
	dir := t.TempDir()
	pkgDir := filepath.Join(dir, "python3.6", "site-packages")
	require.NoError(t, os.MkdirAll(pkgDir, 0755))
	assert.True(t, IsPythonPackageDir(pkgDir))

	notPython := filepath.Join(dir, "aaa", "site-packages")
	require.NoError(t, os.MkdirAll(notPython, 0755))
	assert.False(t, IsPythonPackageDir(notPython))

	assert.False(t, IsPythonPackageDir(dir))
}
