package bus

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestReadWriteByte(t *testing.T) {
	b := New(0xFFFF)
	if b.Len() != 0x10000 {
		t.Fatalf("Len = %d, want %d", b.Len(), 0x10000)
	}
	b.WriteByte(0x0000, 0xFF)
	if got := b.ReadByte(0x0000); got != 0xFF {
		t.Errorf("ReadByte(0) = %02X, want FF", got)
	}
	b.WriteByte(0xFFFF, 0x12)
	if got := b.ReadByte(0xFFFF); got != 0x12 {
		t.Errorf("ReadByte(FFFF) = %02X, want 12", got)
	}
}

func TestWordEndianness(t *testing.T) {
	tests := []struct {
		addr uint16
		v    uint16
	}{
		{0x0000, 0x1BE3},
		{0x0100, 0x0000},
		{0x7FFF, 0xFFFF},
		{0xFFFD, 0x8001},
	}
	for _, tc := range tests {
		b := New(0xFFFF)
		b.WriteWord(tc.addr, tc.v)
		if got := b.ReadWord(tc.addr); got != tc.v {
			t.Errorf("ReadWord(%04X) = %04X, want %04X", tc.addr, got, tc.v)
		}
		swapped := tc.v<<8 | tc.v>>8
		if got := b.ReadLEWord(tc.addr); got != swapped {
			t.Errorf("ReadLEWord(%04X) = %04X, want %04X", tc.addr, got, swapped)
		}
		if got := b.ReadByte(tc.addr); got != uint8(tc.v) {
			t.Errorf("low byte at %04X = %02X, want %02X", tc.addr, got, uint8(tc.v))
		}
		if got := b.ReadByte(tc.addr + 1); got != uint8(tc.v>>8) {
			t.Errorf("high byte at %04X = %02X, want %02X", tc.addr+1, got, uint8(tc.v>>8))
		}
	}
}

func TestOutOfRange(t *testing.T) {
	b := New(0x00FF)
	for i := 0; i < b.Len(); i++ {
		b.WriteByte(uint16(i), 0xAA)
	}

	for _, addr := range []uint16{0x0100, 0x0101, 0x8000, 0xFFFF} {
		if got := b.ReadByte(addr); got != 0 {
			t.Errorf("ReadByte(%04X) = %02X, want 0", addr, got)
		}
		if got := b.ReadWord(addr); got != 0 {
			t.Errorf("ReadWord(%04X) = %04X, want 0", addr, got)
		}
		if got := b.ReadLEWord(addr); got != 0 {
			t.Errorf("ReadLEWord(%04X) = %04X, want 0", addr, got)
		}
		b.WriteByte(addr, 0x55)
		b.WriteWord(addr, 0x5555)
	}

	// Writes past the end must not disturb anything in range.
	for i, v := range b.Export() {
		if v != 0xAA {
			t.Fatalf("byte %04X = %02X after out-of-range writes, want AA", i, v)
		}
	}
}

func TestWordAtLastAddress(t *testing.T) {
	b := New(0x00FF)
	b.WriteByte(0x0000, 0x77)
	b.WriteWord(0x00FF, 0xBEEF)

	if got := b.ReadByte(0x00FF); got != 0xEF {
		t.Errorf("low byte = %02X, want EF", got)
	}
	if got := b.ReadWord(0x00FF); got != 0x00EF {
		t.Errorf("ReadWord(00FF) = %04X, want 00EF", got)
	}
	if got := b.ReadLEWord(0x00FF); got != 0xEF00 {
		t.Errorf("ReadLEWord(00FF) = %04X, want EF00", got)
	}
	// The high byte must not wrap to address 0.
	if got := b.ReadByte(0x0000); got != 0x77 {
		t.Errorf("ReadByte(0) = %02X, want 77", got)
	}
}

func TestROMSpace(t *testing.T) {
	b := New(0xFFFF)
	if b.HasROMSpace() {
		t.Fatal("new bus should have no ROM space")
	}
	if s, e := b.ROMSpace(); s != 0 || e != 0 {
		t.Errorf("ROMSpace() = (%04X, %04X), want (0, 0)", s, e)
	}

	b.SetROMSpace(0x0000, 0x00FF)
	if !b.HasROMSpace() {
		t.Fatal("HasROMSpace() = false after SetROMSpace")
	}
	if s, e := b.ROMSpace(); s != 0x0000 || e != 0x00FF {
		t.Errorf("ROMSpace() = (%04X, %04X), want (0000, 00FF)", s, e)
	}

	b.WriteByte(0x0050, 0xFF)
	b.WriteByte(0x0000, 0xFF)
	b.WriteByte(0x00FF, 0xFF)
	b.WriteByte(0x0100, 0xFF)
	b.WriteByte(0x0200, 0xFF)

	tests := []struct {
		addr uint16
		want uint8
	}{
		{0x0000, 0x00},
		{0x0050, 0x00},
		{0x00FF, 0x00},
		{0x0100, 0xFF},
		{0x0200, 0xFF},
	}
	for _, tc := range tests {
		if got := b.ReadByte(tc.addr); got != tc.want {
			t.Errorf("ReadByte(%04X) = %02X, want %02X", tc.addr, got, tc.want)
		}
	}

	// Replacing the range moves the protection.
	b.SetROMSpace(0x1000, 0x1FFF)
	b.WriteByte(0x0050, 0x42)
	b.WriteByte(0x1800, 0x42)
	if got := b.ReadByte(0x0050); got != 0x42 {
		t.Errorf("ReadByte(0050) = %02X after moving ROM, want 42", got)
	}
	if got := b.ReadByte(0x1800); got != 0x00 {
		t.Errorf("ReadByte(1800) = %02X inside new ROM, want 00", got)
	}

	b.ClearROMSpace()
	b.WriteByte(0x1800, 0x42)
	if got := b.ReadByte(0x1800); got != 0x42 {
		t.Errorf("ReadByte(1800) = %02X after ClearROMSpace, want 42", got)
	}
}

func TestROMSpaceWord(t *testing.T) {
	b := New(0xFFFF)
	b.SetROMSpace(0x0100, 0x01FF)

	b.WriteWord(0x0100, 0x1234)
	if got := b.ReadWord(0x0100); got != 0 {
		t.Errorf("word inside ROM = %04X, want 0", got)
	}

	// Only addr is checked: a word starting just below ROM writes both bytes.
	b.WriteWord(0x00FF, 0xABCD)
	if got := b.ReadByte(0x00FF); got != 0xCD {
		t.Errorf("low byte below ROM = %02X, want CD", got)
	}
	if got := b.ReadByte(0x0100); got != 0xAB {
		t.Errorf("high byte at ROM start = %02X, want AB", got)
	}
}

func TestWriteWordAtROMEndIsNoOp(t *testing.T) {
	b := New(0xFFFF)
	b.SetROMSpace(0x0000, 0x00FF)

	b.WriteWord(0x00FF, 0xABCD)
	if got := b.ReadByte(0x00FF); got != 0x00 {
		t.Errorf("byte at ROM end = %02X, want 00", got)
	}
	if got := b.ReadByte(0x0100); got != 0x00 {
		t.Errorf("byte after ROM = %02X, want 00", got)
	}
}

func TestInvertedROMSpaceProtectsNothing(t *testing.T) {
	b := New(0xFFFF)
	b.SetROMSpace(0x0200, 0x0100)
	b.WriteByte(0x0150, 0x99)
	if got := b.ReadByte(0x0150); got != 0x99 {
		t.Errorf("ReadByte(0150) = %02X, want 99", got)
	}
}

func TestExportIsCopy(t *testing.T) {
	b := New(0x000F)
	b.WriteByte(3, 0x33)
	dump := b.Export()
	if len(dump) != 16 {
		t.Fatalf("len(Export()) = %d, want 16", len(dump))
	}
	dump[3] = 0
	if got := b.ReadByte(3); got != 0x33 {
		t.Errorf("mutating Export() result changed memory: got %02X", got)
	}
}

func TestImportAt(t *testing.T) {
	b := New(0x00FF)
	b.SetROMSpace(0x0000, 0x00FF)

	if err := b.ImportAt([]uint8{1, 2, 3}, 0x0010); err != nil {
		t.Fatalf("ImportAt: %v", err)
	}
	for i, want := range []uint8{1, 2, 3} {
		if got := b.ReadByte(0x0010 + uint16(i)); got != want {
			t.Errorf("byte %d = %02X, want %02X (ImportAt ignores ROM)", i, got, want)
		}
	}

	if err := b.ImportAt([]uint8{9, 9}, 0x00FF); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("ImportAt overflow: err = %v, want ErrPayloadTooLarge", err)
	}
	if got := b.ReadByte(0x00FF); got != 0 {
		t.Errorf("overflowing ImportAt wrote %02X at 00FF", got)
	}

	var oe *OverflowError
	err := b.ImportAt(make([]uint8, 0x101), 0)
	if !errors.As(err, &oe) {
		t.Fatalf("err = %v, want *OverflowError", err)
	}
	if oe.Length != 0x101 || oe.Capacity != 0x100 || oe.Org != 0 {
		t.Errorf("OverflowError = %+v", oe)
	}

	// A payload ending exactly at the last byte fits.
	if err := b.ImportAt(make([]uint8, 0x100), 0); err != nil {
		t.Errorf("full-size ImportAt: %v", err)
	}
}

func TestLoadBin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.bin")
	prog := []uint8{0x3E, 0x0F, 0x3D, 0xC2, 0x02, 0x01, 0xC9}
	if err := os.WriteFile(path, prog, 0o644); err != nil {
		t.Fatal(err)
	}

	b := New(0xFFFF)
	if err := b.LoadBin(path, 0x0100); err != nil {
		t.Fatalf("LoadBin: %v", err)
	}
	for i, want := range prog {
		if got := b.ReadByte(0x0100 + uint16(i)); got != want {
			t.Errorf("byte %04X = %02X, want %02X", 0x0100+i, got, want)
		}
	}
	if got := b.ReadWord(0x0104); got != 0x0102 {
		t.Errorf("ReadWord(0104) = %04X, want 0102", got)
	}
}

func TestLoadBinErrors(t *testing.T) {
	dir := t.TempDir()

	b := New(0x00FF)
	err := b.LoadBin(filepath.Join(dir, "missing.bin"), 0)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file: err = %v, want fs.ErrNotExist", err)
	}

	big := filepath.Join(dir, "big.bin")
	if err := os.WriteFile(big, bytes.Repeat([]uint8{0xEE}, 0x20), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := b.LoadBin(big, 0x00F0); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("oversized file: err = %v, want ErrPayloadTooLarge", err)
	}
	for i, v := range b.Export() {
		if v != 0 {
			t.Fatalf("failed LoadBin modified byte %04X = %02X", i, v)
		}
	}
}

func TestLoadReader(t *testing.T) {
	b := New(0x00FF)
	if err := b.Load(bytes.NewReader([]uint8{0xAA, 0xBB}), 0x00FE); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := b.ReadWord(0x00FE); got != 0xBBAA {
		t.Errorf("ReadWord(00FE) = %04X, want BBAA", got)
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(0x00FF), New(0x00FF)
	a.SetROMSpace(0, 0x0F)
	b.WriteByte(0x05, 0x11)
	a.WriteByte(0x05, 0x22)
	if a.ReadByte(0x05) != 0 || b.ReadByte(0x05) != 0x11 {
		t.Errorf("buses share state: a=%02X b=%02X", a.ReadByte(0x05), b.ReadByte(0x05))
	}
}
