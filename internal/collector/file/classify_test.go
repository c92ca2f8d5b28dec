package file

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tuai/tuaid/pkg/model"
)

func TestClassifyPath(t *testing.T) {
	cases := []struct {
		path string
		want model.PathClass
	}{
		{"/home/u/proj/main.go", model.PathSourceCode},
		{"/home/u/proj/config.yaml", model.PathConfig},
		{"/home/u/proj/README.md", model.PathDocumentation},
		{"/home/u/proj/.git/HEAD", model.PathVersionControl},
		{"/home/u/proj/go.sum", model.PathLockFile},
		{"/home/u/proj/target/debug/app", model.PathBuildArtifact},
		{"/home/u/proj/notes.xyz", model.PathOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyPath(tc.path), tc.path)
	}
}
