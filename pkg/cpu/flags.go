package cpu

// Flags is the 8080 PSW flag byte.
// The codec stores it verbatim; bit meanings belong to the interpreter.
type Flags uint8

// 8080 flag bit positions.
const (
	FlagC Flags = 0x01 // Carry
	Flag1 Flags = 0x02 // Always 1 on real hardware
	FlagP Flags = 0x04 // Parity
	FlagA Flags = 0x10 // Auxiliary carry
	FlagZ Flags = 0x40 // Zero
	FlagS Flags = 0x80 // Sign
)

// FlagsFromByte converts a PSW byte into Flags.
func FlagsFromByte(b uint8) Flags {
	return Flags(b)
}

// AsByte returns the PSW byte.
func (f Flags) AsByte() uint8 {
	return uint8(f)
}

// Has reports whether every bit in mask is set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// Set sets or clears the bits in mask.
func (f *Flags) Set(mask Flags, on bool) {
	if on {
		*f |= mask
	} else {
		*f &^= mask
	}
}

// String renders the flags as "SZ-A-P-C" with '-' for clear bits.
func (f Flags) String() string {
	const names = "SZ-A-P-C"
	out := []byte(names)
	for i := 0; i < 8; i++ {
		bit := Flags(0x80 >> i)
		if names[i] == '-' || f&bit == 0 {
			out[i] = '-'
		}
	}
	return string(out)
}
