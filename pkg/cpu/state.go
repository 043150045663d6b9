package cpu

// Slice defaults: the interpreter runs SliceMaxCycles cycles, then sleeps
// out the rest of SliceDuration milliseconds. 16 ms at 2 MHz.
const (
	DefaultSliceDuration  uint32 = 16
	DefaultSliceMaxCycles uint32 = 32000
	DefaultSP             uint16 = 0xFF00
)

// Interrupt is a pending interrupt request: whether one is outstanding and
// the opcode byte the device put on the data bus.
type Interrupt struct {
	Pending bool
	Data    uint8
}

// State is the 8080 register file plus the interrupt and timing state the
// interpreter carries between instructions. It is a plain value: copy it to
// keep a checkpoint.
type State struct {
	A, B, C, D, E, H, L uint8
	Flags               Flags
	PC, SP              uint16

	Int        Interrupt
	IntEnabled bool

	SliceDuration  uint32 // milliseconds per execution slice
	SliceMaxCycles uint32 // cycles per execution slice
}

// NewState returns the power-on state used by the emulator.
func NewState() State {
	return State{
		Flags:          Flag1,
		SP:             DefaultSP,
		SliceDuration:  DefaultSliceDuration,
		SliceMaxCycles: DefaultSliceMaxCycles,
	}
}

// SetFreq sets SliceMaxCycles from a clock frequency in MHz, keeping
// SliceDuration.
func (s *State) SetFreq(mhz float64) {
	s.SliceMaxCycles = uint32(float64(s.SliceDuration) * mhz * 1000)
}

// Equal returns true if two states are identical.
func (s State) Equal(o State) bool {
	return s == o
}

// BC returns the BC register pair.
func (s *State) BC() uint16 { return uint16(s.B)<<8 | uint16(s.C) }

// DE returns the DE register pair.
func (s *State) DE() uint16 { return uint16(s.D)<<8 | uint16(s.E) }

// HL returns the HL register pair.
func (s *State) HL() uint16 { return uint16(s.H)<<8 | uint16(s.L) }

// SetBC sets the BC register pair.
func (s *State) SetBC(v uint16) { s.B, s.C = uint8(v>>8), uint8(v) }

// SetDE sets the DE register pair.
func (s *State) SetDE(v uint16) { s.D, s.E = uint8(v>>8), uint8(v) }

// SetHL sets the HL register pair.
func (s *State) SetHL(v uint16) { s.H, s.L = uint8(v>>8), uint8(v) }

// PSW returns the A/flags pair as pushed by PUSH PSW.
func (s *State) PSW() uint16 { return uint16(s.A)<<8 | uint16(s.Flags) }
