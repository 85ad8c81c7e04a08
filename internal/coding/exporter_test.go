package coding

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirExporter_creates_dir_and_writes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "package")
	exp := &DirExporter{Dir: dir}

	if err := exp.Write("report.html", []byte("<html></html>")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "report.html"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(content) != "<html></html>" {
		t.Errorf("unexpected content: %s", content)
	}
}

func TestDirExporter_overwrites(t *testing.T) {
	exp := &DirExporter{Dir: t.TempDir()}

	_ = exp.Write("sequence.csv", []byte("old"))
	if err := exp.Write("sequence.csv", []byte("new")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	content, _ := os.ReadFile(filepath.Join(exp.Dir, "sequence.csv"))
	if string(content) != "new" {
		t.Errorf("expected overwrite, got %s", content)
	}
}
