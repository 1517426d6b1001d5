package hooks

import "os"

//go:generate mockgen -source=stater.go -destination=mock_stater.go -package=hooks

// FileStater abstracts the single stat call used for file-size checks.
// The call touches the filesystem and may be slow; evaluator code must
// swallow its failures rather than propagate them.
type FileStater interface {
	// Size returns the size in bytes of the file at path.
	Size(path string) (int64, error)
}

// osStater implements FileStater with os.Stat.
type osStater struct{}

// NewFileStater creates the default os-backed FileStater.
func NewFileStater() FileStater {
	return &osStater{}
}

// Size returns the file size via os.Stat.
func (s *osStater) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
