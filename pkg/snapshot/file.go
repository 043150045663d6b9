package snapshot

import (
	"fmt"
	"io"
	"os"

	"github.com/oisee/i8080/pkg/bus"
	"github.com/oisee/i8080/pkg/cpu"
)

// Write encodes the machine to w.
func Write(w io.Writer, st *cpu.State, b *bus.Bus) error {
	_, err := w.Write(Export(st, b))
	return err
}

// Read reads a whole snapshot from r and imports it into st and b.
func Read(r io.Reader, st *cpu.State, b *bus.Bus) (ROMBounds, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ROMBounds{}, fmt.Errorf("read snapshot: %w", err)
	}
	return Import(data, st, b)
}

// SaveFile writes the machine to path.
func SaveFile(path string, st *cpu.State, b *bus.Bus) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, st, b); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// LoadFile reads and decodes the snapshot stored at path.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
