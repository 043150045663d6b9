package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// parseNumber accepts 0x1F, $1F, 1Fh and decimal.
func parseNumber(s string, bits int) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	upper := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(upper, "0X"):
		return strconv.ParseUint(s[2:], 16, bits)
	case strings.HasPrefix(s, "$"):
		return strconv.ParseUint(s[1:], 16, bits)
	case strings.HasSuffix(upper, "H"):
		return strconv.ParseUint(s[:len(s)-1], 16, bits)
	}
	return strconv.ParseUint(s, 10, bits)
}

func parseAddr(s string) (uint16, error) {
	v, err := parseNumber(s, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint16(v), nil
}

func parseByte(s string) (uint8, error) {
	v, err := parseNumber(s, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", s)
	}
	return uint8(v), nil
}

// addrValue is a 16-bit flag that accepts hex notation.
type addrValue uint16

var _ pflag.Value = (*addrValue)(nil)

func (a *addrValue) String() string { return fmt.Sprintf("0x%04X", uint16(*a)) }
func (a *addrValue) Type() string   { return "addr" }

func (a *addrValue) Set(s string) error {
	v, err := parseAddr(s)
	if err != nil {
		return err
	}
	*a = addrValue(v)
	return nil
}

// byteValue is an 8-bit flag that accepts hex notation.
type byteValue uint8

var _ pflag.Value = (*byteValue)(nil)

func (b *byteValue) String() string { return fmt.Sprintf("0x%02X", uint8(*b)) }
func (b *byteValue) Type() string   { return "byte" }

func (b *byteValue) Set(s string) error {
	v, err := parseByte(s)
	if err != nil {
		return err
	}
	*b = byteValue(v)
	return nil
}

// romValue is an inclusive "start-end" range. It stays unset until Set is
// called, so a [0, 0] range can still be requested explicitly.
type romValue struct {
	set        bool
	start, end uint16
}

var _ pflag.Value = (*romValue)(nil)

func (r *romValue) Type() string { return "start-end" }

func (r *romValue) String() string {
	if !r.set {
		return ""
	}
	return fmt.Sprintf("0x%04X-0x%04X", r.start, r.end)
}

func (r *romValue) Set(s string) error {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		lo, hi, ok = strings.Cut(s, ":")
	}
	if !ok {
		return fmt.Errorf("ROM range %q: want start-end", s)
	}
	start, err := parseAddr(lo)
	if err != nil {
		return err
	}
	end, err := parseAddr(hi)
	if err != nil {
		return err
	}
	if end < start {
		return fmt.Errorf("ROM range %q: end before start", s)
	}
	*r = romValue{set: true, start: start, end: end}
	return nil
}

// loadSpec is a "path[@org]" argument of --load.
type loadSpec struct {
	path string
	org  uint16
}

func parseLoadSpec(s string) (loadSpec, error) {
	path, org, ok := strings.Cut(s, "@")
	if path == "" {
		return loadSpec{}, fmt.Errorf("load %q: missing path", s)
	}
	if !ok {
		return loadSpec{path: path}, nil
	}
	a, err := parseAddr(org)
	if err != nil {
		return loadSpec{}, fmt.Errorf("load %q: %w", s, err)
	}
	return loadSpec{path: path, org: a}, nil
}
