package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Saver stores attachment blobs under a directory, naming each file
// with a timestamp prefix so references stay unique. The reference it
// returns is opaque to the rest of the system.
type Saver struct {
	dir string
}

// NewSaver creates the upload directory if needed.
func NewSaver(dir string) (*Saver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Saver{dir: dir}, nil
}

// Save writes the blob and returns its reference, the stored filename.
func (s *Saver) Save(original string, src io.Reader) (string, error) {
	name := time.Now().Format("20060102_150405") + "_" + sanitize(original)

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return name, nil
}

// Open returns the blob behind a reference.
func (s *Saver) Open(reference string) (*os.File, error) {
	f, err := os.Open(filepath.Join(s.dir, sanitize(reference)))
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", reference, err)
	}
	return f, nil
}

// sanitize strips path components so a reference cannot escape the
// upload directory.
func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		return "upload"
	}
	return name
}
