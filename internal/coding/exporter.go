package coding

import (
	"fmt"
	"os"
	"path/filepath"
)

// Exporter persists one generated artifact under a name. Each artifact is
// written independently; a failure on one must not block the others, which
// the caller enforces by collecting errors rather than stopping.
type Exporter interface {
	Write(name string, content []byte) error
}

// DirExporter writes artifacts into a base directory, creating it on demand.
type DirExporter struct {
	Dir string
}

// Write implements Exporter.
func (e *DirExporter) Write(name string, content []byte) error {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(e.Dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
