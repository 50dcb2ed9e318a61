package port

import "time"

// FileWalker lists candidate source files under a directory.
type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	RelPath string // slash-separated, relative to the walk root
	ModTime time.Time
	Size    int64
}
