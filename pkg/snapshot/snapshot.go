// Package snapshot freezes and restores a complete 8080 machine: the
// register file, interrupt and timing state, ROM bounds and memory.
//
// A snapshot is a 48-byte big-endian header followed by the full memory
// dump:
//
//	0x00  magic "ALTR"         0x14  interrupt pending
//	0x04  version              0x15  interrupt data
//	0x08  A B C D E H L        0x16  interrupt enable
//	0x0F  flags                0x18  slice duration
//	0x10  PC                   0x1C  slice max cycles
//	0x12  SP                   0x2C  ROM start, ROM end
//	0x30  memory (bus capacity bytes)
//
// Gaps are reserved and written as zero.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/oisee/i8080/pkg/bus"
	"github.com/oisee/i8080/pkg/cpu"
)

const (
	// Version is the only layout this package reads or writes.
	Version uint8 = 1
	// HeaderSize is the offset of the memory dump.
	HeaderSize = 0x30
)

// Magic identifies a snapshot (41 4C 54 52).
const Magic = "ALTR"

var (
	// ErrInvalidHeader means the data does not start with Magic.
	ErrInvalidHeader = errors.New("snapshot: invalid header")
	// ErrUnsupportedVersion means the version byte is not Version.
	ErrUnsupportedVersion = errors.New("snapshot: unsupported version")
	// ErrTruncated means the data is shorter than HeaderSize.
	ErrTruncated = errors.New("snapshot: truncated")
	// ErrNoMemory means the snapshot carries no memory dump.
	ErrNoMemory = errors.New("snapshot: no memory dump")
)

// maxMemory is the 8080 address space.
const maxMemory = 0x10000

// header is the fixed part of a version 1 snapshot, in file order.
// Blank fields are written as zero and skipped on read.
type header struct {
	Magic          [4]byte
	Version        uint8
	_              [3]byte
	A, B, C, D     uint8
	E, H, L        uint8
	Flags          uint8
	PC, SP         uint16
	IntPending     bool
	IntData        uint8
	IntEnabled     bool
	_              uint8
	SliceDuration  uint32
	SliceMaxCycles uint32
	_              [12]byte
	ROMStart       uint16
	ROMEnd         uint16
}

// ROMBounds is the write-protected range recorded in a snapshot.
// A snapshot cannot tell an unset range from [0, 0]; both decode as zero.
type ROMBounds struct {
	Start, End uint16
}

// IsZero reports whether no ROM range was recorded.
func (r ROMBounds) IsZero() bool {
	return r == ROMBounds{}
}

// Snapshot is a decoded snapshot, independent of any running machine.
type Snapshot struct {
	State  cpu.State
	ROM    ROMBounds
	Memory []byte
}

// Capture copies the machine into a Snapshot.
func Capture(st *cpu.State, b *bus.Bus) *Snapshot {
	start, end := b.ROMSpace()
	return &Snapshot{
		State:  *st,
		ROM:    ROMBounds{Start: start, End: end},
		Memory: b.Export(),
	}
}

func (s *Snapshot) header() header {
	st := &s.State
	h := header{
		Version:        Version,
		A:              st.A,
		B:              st.B,
		C:              st.C,
		D:              st.D,
		E:              st.E,
		H:              st.H,
		L:              st.L,
		Flags:          st.Flags.AsByte(),
		PC:             st.PC,
		SP:             st.SP,
		IntPending:     st.Int.Pending,
		IntData:        st.Int.Data,
		IntEnabled:     st.IntEnabled,
		SliceDuration:  st.SliceDuration,
		SliceMaxCycles: st.SliceMaxCycles,
		ROMStart:       s.ROM.Start,
		ROMEnd:         s.ROM.End,
	}
	copy(h.Magic[:], Magic)
	return h
}

func (h *header) state() cpu.State {
	return cpu.State{
		A:              h.A,
		B:              h.B,
		C:              h.C,
		D:              h.D,
		E:              h.E,
		H:              h.H,
		L:              h.L,
		Flags:          cpu.FlagsFromByte(h.Flags),
		PC:             h.PC,
		SP:             h.SP,
		Int:            cpu.Interrupt{Pending: h.IntPending, Data: h.IntData},
		IntEnabled:     h.IntEnabled,
		SliceDuration:  h.SliceDuration,
		SliceMaxCycles: h.SliceMaxCycles,
	}
}

// MarshalBinary encodes the snapshot. It never fails.
func (s *Snapshot) MarshalBinary() ([]byte, error) {
	h := s.header()
	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(s.Memory)))
	if err := binary.Write(buf, binary.BigEndian, &h); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	buf.Write(s.Memory)
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes data into s. s is left unchanged on error.
// Memory is copied, so data may be reused by the caller.
func (s *Snapshot) UnmarshalBinary(data []byte) error {
	h, err := decodeHeader(data)
	if err != nil {
		return err
	}
	mem := make([]byte, len(data)-HeaderSize)
	copy(mem, data[HeaderSize:])
	*s = Snapshot{
		State:  h.state(),
		ROM:    ROMBounds{Start: h.ROMStart, End: h.ROMEnd},
		Memory: mem,
	}
	return nil
}

func decodeHeader(data []byte) (*header, error) {
	if len(data) < len(Magic) || string(data[:len(Magic)]) != Magic {
		return nil, ErrInvalidHeader
	}
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncated, len(data), HeaderSize)
	}
	var h header
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.BigEndian, &h); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return &h, nil
}

// Decode parses a snapshot.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := s.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &s, nil
}

// Bus builds a new bus sized to the memory dump with the recorded ROM
// range applied. An empty dump fails with ErrNoMemory; a dump larger than
// the 16-bit address space fails with bus.ErrPayloadTooLarge.
func (s *Snapshot) Bus() (*bus.Bus, error) {
	switch {
	case len(s.Memory) == 0:
		return nil, ErrNoMemory
	case len(s.Memory) > maxMemory:
		return nil, &bus.OverflowError{Length: len(s.Memory), Capacity: maxMemory}
	}
	b := bus.New(uint16(len(s.Memory) - 1))
	if err := b.ImportAt(s.Memory, 0); err != nil {
		return nil, err
	}
	if !s.ROM.IsZero() {
		b.SetROMSpace(s.ROM.Start, s.ROM.End)
	}
	return b, nil
}

// Export encodes the machine. The result is HeaderSize+b.Len() bytes.
func Export(st *cpu.State, b *bus.Bus) []byte {
	data, _ := Capture(st, b).MarshalBinary()
	return data
}

// Import decodes data into st and b. Every check runs before st or b is
// touched, so a failed import leaves the machine as it was.
//
// The recorded ROM range is returned but not applied to b; callers that
// want write protection back call b.SetROMSpace or use Restore.
func Import(data []byte, st *cpu.State, b *bus.Bus) (ROMBounds, error) {
	h, err := decodeHeader(data)
	if err != nil {
		return ROMBounds{}, err
	}
	if err := b.ImportAt(data[HeaderSize:], 0); err != nil {
		return ROMBounds{}, err
	}
	*st = h.state()
	return ROMBounds{Start: h.ROMStart, End: h.ROMEnd}, nil
}

// Restore is Import followed by reinstating the recorded ROM range.
// A zero range leaves b without ROM, since it cannot be told apart from
// no range at all.
func Restore(data []byte, st *cpu.State, b *bus.Bus) error {
	rom, err := Import(data, st, b)
	if err != nil {
		return err
	}
	if rom.IsZero() {
		b.ClearROMSpace()
	} else {
		b.SetROMSpace(rom.Start, rom.End)
	}
	return nil
}
