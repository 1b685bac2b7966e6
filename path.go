package knoxvfs

import (
	"strings"

	"github.com/knoxvfs/knoxvfs/vfserrors"
)

// splitPath breaks an absolute-style path ("/a/b/c") into its
// non-empty components, rejecting anything that would produce an
// illegal (empty or slash-containing) directory entry name.
func splitPath(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, "/")
	for _, p := range parts {
		if p == "" {
			return nil, vfserrors.New(vfserrors.IllegalFilename, "splitPath", nil)
		}
	}
	return parts, nil
}
