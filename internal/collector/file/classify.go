package file

import (
	"path/filepath"
	"strings"

	"github.com/tuai/tuaid/pkg/model"
)

var sourceCodeExts = map[string]struct{}{
	".go": {}, ".rs": {}, ".py": {}, ".js": {}, ".ts": {}, ".jsx": {}, ".tsx": {},
	".java": {}, ".c": {}, ".h": {}, ".cpp": {}, ".hpp": {}, ".rb": {}, ".php": {},
	".swift": {}, ".kt": {}, ".cs": {}, ".sh": {},
}

var configExts = map[string]struct{}{
	".yaml": {}, ".yml": {}, ".toml": {}, ".json": {}, ".ini": {}, ".conf": {}, ".env": {},
}

var docExts = map[string]struct{}{
	".md": {}, ".rst": {}, ".txt": {}, ".adoc": {},
}

var lockFileNames = map[string]struct{}{
	"go.sum": {}, "package-lock.json": {}, "yarn.lock": {}, "pnpm-lock.yaml": {},
	"Cargo.lock": {}, "poetry.lock": {}, "Gemfile.lock": {},
}

// ClassifyPath labels a path for presentation only, mirroring the buckets
// spec.md §4.4 describes; it never gates tracking.
func ClassifyPath(path string) model.PathClass {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))

	if strings.Contains(path, "/.git/") || base == ".gitignore" {
		return model.PathVersionControl
	}
	if _, ok := lockFileNames[base]; ok {
		return model.PathLockFile
	}
	if strings.Contains(path, "/target/") || strings.Contains(path, "/dist/") ||
		strings.Contains(path, "/build/") || strings.HasSuffix(path, ".o") ||
		strings.HasSuffix(path, ".class") {
		return model.PathBuildArtifact
	}
	if _, ok := sourceCodeExts[ext]; ok {
		return model.PathSourceCode
	}
	if _, ok := configExts[ext]; ok {
		return model.PathConfig
	}
	if _, ok := docExts[ext]; ok {
		return model.PathDocumentation
	}
	return model.PathOther
}
