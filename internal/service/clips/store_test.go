package clips

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/spf13/afero"
)

func TestStore_SaveAndOpen(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := NewStore(fs, "out")
	if err != nil {
		t.Fatal(err)
	}

	path, err := s.Save(3, []byte("mp3 data"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != "out/output_3.mp3" {
		t.Errorf("unexpected path %q", path)
	}

	rc, err := s.Open(3)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "mp3 data" {
		t.Errorf("got %q", data)
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, _ := NewStore(fs, ".")

	s.Save(0, []byte("first run, longer"))
	s.Save(0, []byte("second"))

	data, _ := afero.ReadFile(fs, s.Path(0))
	if string(data) != "second" {
		t.Errorf("expected overwrite, got %q", data)
	}
}

func TestStore_OpenMissing(t *testing.T) {
	s, _ := NewStore(afero.NewMemMapFs(), "")

	if _, err := s.Open(7); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestStore_ReadOnlyFs(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	if _, err := NewStore(fs, "out"); err == nil {
		t.Error("expected error creating directory on read-only fs")
	}
}
