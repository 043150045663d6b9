package bus

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrPayloadTooLarge is returned by bulk loads that would run past the end
// of the address space. Memory is left untouched when it is returned.
var ErrPayloadTooLarge = errors.New("payload too large for address space")

// OverflowError describes a rejected bulk load.
type OverflowError struct {
	Org      uint16
	Length   int
	Capacity int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%v: %d bytes at $%04X exceed capacity of %d bytes",
		ErrPayloadTooLarge, e.Length, e.Org, e.Capacity)
}

// Unwrap lets errors.Is match ErrPayloadTooLarge.
func (e *OverflowError) Unwrap() error {
	return ErrPayloadTooLarge
}

// romSpace is the inclusive read-only address range.
type romSpace struct {
	start, end uint16
}

// Bus is the 8080 memory map: a flat byte array with an optional
// write-protected ROM range.
//
// Byte and word accessors never fail. Reads past the end return 0 and
// writes past the end or inside ROM are dropped, so the instruction loop
// does not have to check anything.
type Bus struct {
	mem []uint8
	rom *romSpace
}

// New creates a bus whose highest address is size (size+1 bytes).
func New(size uint16) *Bus {
	return &Bus{mem: make([]uint8, int(size)+1)}
}

// Len returns the capacity in bytes.
func (b *Bus) Len() int {
	return len(b.mem)
}

// SetROMSpace declares [start, end] read-only, replacing any previous range.
// The range is not validated: an inverted range protects nothing.
func (b *Bus) SetROMSpace(start, end uint16) {
	b.rom = &romSpace{start: start, end: end}
}

// ClearROMSpace removes write protection.
func (b *Bus) ClearROMSpace() {
	b.rom = nil
}

// ROMSpace returns the ROM bounds, or (0, 0) when none is set.
// Use HasROMSpace to tell an unset range from [0, 0].
func (b *Bus) ROMSpace() (start, end uint16) {
	if b.rom == nil {
		return 0, 0
	}
	return b.rom.start, b.rom.end
}

// HasROMSpace reports whether a ROM range is declared.
func (b *Bus) HasROMSpace() bool {
	return b.rom != nil
}

func (b *Bus) inROM(addr uint16) bool {
	return b.rom != nil && addr >= b.rom.start && addr <= b.rom.end
}

// ReadByte returns the byte at addr, or 0 past the end of memory.
func (b *Bus) ReadByte(addr uint16) uint8 {
	if int(addr) >= len(b.mem) {
		return 0
	}
	return b.mem[addr]
}

// WriteByte stores v at addr unless addr is past the end or inside ROM.
func (b *Bus) WriteByte(addr uint16, v uint8) {
	if int(addr) >= len(b.mem) || b.inROM(addr) {
		return
	}
	b.mem[addr] = v
}

// ReadWord reads a little-endian word: low byte at addr, high byte at addr+1.
// Returns 0 when addr is past the end; a high byte past the end reads as 0.
func (b *Bus) ReadWord(addr uint16) uint16 {
	if int(addr) >= len(b.mem) {
		return 0
	}
	return uint16(b.mem[addr]) | uint16(b.hi(addr))<<8
}

// ReadLEWord reads the same two bytes as ReadWord, byte-swapped:
// the byte at addr is the high half.
func (b *Bus) ReadLEWord(addr uint16) uint16 {
	if int(addr) >= len(b.mem) {
		return 0
	}
	return uint16(b.mem[addr])<<8 | uint16(b.hi(addr))
}

// hi returns the byte following addr without wrapping around the 16-bit
// address space.
func (b *Bus) hi(addr uint16) uint8 {
	i := int(addr) + 1
	if i >= len(b.mem) {
		return 0
	}
	return b.mem[i]
}

// WriteWord stores v little-endian at addr. Bounds and ROM are checked
// against addr only, as WriteByte does: a word starting just below ROM
// still writes its high byte into it. A high byte past the end is dropped.
func (b *Bus) WriteWord(addr uint16, v uint16) {
	if int(addr) >= len(b.mem) || b.inROM(addr) {
		return
	}
	b.mem[addr] = uint8(v)
	if int(addr)+1 < len(b.mem) {
		b.mem[addr+1] = uint8(v >> 8)
	}
}

// Export returns a copy of the whole address space.
func (b *Bus) Export() []uint8 {
	out := make([]uint8, len(b.mem))
	copy(out, b.mem)
	return out
}

// ImportAt copies data into memory starting at org. ROM protection does
// not apply. Nothing is written if data would run past the end.
func (b *Bus) ImportAt(data []uint8, org uint16) error {
	if err := b.fits(org, len(data)); err != nil {
		return err
	}
	copy(b.mem[org:], data)
	return nil
}

func (b *Bus) fits(org uint16, n int) error {
	if int(org)+n > len(b.mem) {
		return &OverflowError{Org: org, Length: n, Capacity: len(b.mem)}
	}
	return nil
}

// Load reads r to EOF and copies the contents at org.
func (b *Bus) Load(r io.Reader, org uint16) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read binary: %w", err)
	}
	return b.ImportAt(data, org)
}

// LoadBin loads a binary file into memory at org.
func (b *Bus) LoadBin(path string, org uint16) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := b.Load(f, org); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
