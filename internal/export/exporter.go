package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tazhate/familycal/internal/atomicfile"
)

// Exporter saves a rendered export under a suggested file name.
type Exporter interface {
	Export(filename string, blob []byte) error
}

// FileExporter writes exports into a directory.
type FileExporter struct {
	dir string
}

func NewFileExporter(dir string) *FileExporter {
	return &FileExporter{dir: dir}
}

// Export writes blob to dir/filename. filename must be a bare name.
func (e *FileExporter) Export(filename string, blob []byte) error {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return fmt.Errorf("invalid export filename %q", filename)
	}
	if err := atomicfile.WriteFile(filepath.Join(e.dir, filename), blob, 0o644); err != nil {
		return fmt.Errorf("write export %s: %w", filename, err)
	}
	return nil
}

// Path returns where Export places filename
func (e *FileExporter) Path(filename string) string {
	return filepath.Join(e.dir, filename)
}
