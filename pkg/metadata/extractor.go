package metadata

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/xattr"

	"github.com/taghound/taghound/pkg/types"
)

// tagAttrKeys are the extended-attribute names checked for the tag
// annotation blob, in order. macOS stores Finder tags under the metadata
// namespace; on Linux the same payload appears under user.* when written
// by tools that mirror it.
var tagAttrKeys = []string{
	"com.apple.metadata:_kMDItemUserTags",
	"user.com.apple.metadata:_kMDItemUserTags",
}

// Extractor produces FileRecord fields plus raw tag-annotation bytes for
// filesystem paths. Pure reads, no side effects.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract stats a path and reads its tag annotation. Parent is the
// containing directory; only the filesystem root has none.
func (e *Extractor) Extract(path string) (*types.FileRecord, []byte, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, nil, wrapPathError(path, err)
	}

	// Report a symlink with its target's shape so directories behind
	// links can still be traversed. A dangling link keeps the link stat.
	if info.Mode()&fs.ModeSymlink != 0 {
		if target, statErr := os.Stat(path); statErr == nil {
			info = target
		}
	}

	record := &types.FileRecord{
		Path:    path,
		Parent:  parentOf(path),
		Name:    filepath.Base(path),
		IsDir:   info.IsDir(),
		ModTime: info.ModTime(),
	}
	if !record.IsDir {
		record.Size = info.Size()
		record.Kind = kindOf(record.Name)
	}

	return record, e.readTagBytes(path), nil
}

// ReadDir lists the immediate children of a directory.
func (e *Extractor) ReadDir(path string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, wrapPathError(path, err)
	}
	return entries, nil
}

// readTagBytes returns the raw annotation blob, or nil when the
// attribute is missing or unreadable. Annotation retrieval failures
// never fail the record.
func (e *Extractor) readTagBytes(path string) []byte {
	for _, key := range tagAttrKeys {
		if data, err := xattr.LGet(path, key); err == nil && len(data) > 0 {
			return data
		}
	}
	return nil
}

func wrapPathError(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return &types.ErrNotFound{Path: path}
	case os.IsPermission(err):
		return &types.ErrAccess{Path: path}
	default:
		return &types.ErrIO{Path: path, Err: err}
	}
}

func parentOf(path string) string {
	parent := filepath.Dir(path)
	if parent == path {
		return ""
	}
	return parent
}

// kindOf returns the lowercased extension without the dot. Dotfiles like
// ".bashrc" have no extension.
func kindOf(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || ext == name {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
