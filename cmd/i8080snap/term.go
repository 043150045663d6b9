package main

import (
	"io"
	"os"

	"golang.org/x/term"
)

const defaultRowWidth = 16

// rowWidth picks the widest power-of-two row (up to 32 bytes) that fits the
// terminal w writes to. Pipes and files get defaultRowWidth.
func rowWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultRowWidth
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return defaultRowWidth
	}
	return fitWidth(cols)
}

// fitWidth returns the bytes per row for a terminal cols wide. A row of n
// bytes takes 5 + 3n + 2 + n columns.
func fitWidth(cols int) int {
	n := 32
	for n > 4 && 7+4*n > cols {
		n /= 2
	}
	return n
}
