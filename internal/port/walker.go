package port

// FileWalker finds ingestible files below a directory.
type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

// FileInfo is a file selected for ingestion. Size is in bytes.
type FileInfo struct {
	Path string
	Size int64
}
