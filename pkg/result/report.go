package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"

	"github.com/oisee/i8080/pkg/snapshot"
)

// Report is the human-readable form of a snapshot, as printed by
// "i8080snap inspect --json".
type Report struct {
	Version        uint8  `json:"version"`
	A              string `json:"a"`
	B              string `json:"b"`
	C              string `json:"c"`
	D              string `json:"d"`
	E              string `json:"e"`
	H              string `json:"h"`
	L              string `json:"l"`
	Flags          string `json:"flags"`
	FlagBits       string `json:"flag_bits"`
	PC             string `json:"pc"`
	SP             string `json:"sp"`
	IntPending     bool   `json:"int_pending"`
	IntData        string `json:"int_data"`
	IntEnabled     bool   `json:"int_enabled"`
	SliceDuration  uint32 `json:"slice_duration_ms"`
	SliceMaxCycles uint32 `json:"slice_max_cycles"`
	ROM            *Range `json:"rom,omitempty"`
	MemorySize     int    `json:"memory_size"`
	NonZeroBytes   int    `json:"non_zero_bytes"`
}

// Range is an inclusive address range.
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func hex8(v uint8) string   { return fmt.Sprintf("0x%02X", v) }
func hex16(v uint16) string { return fmt.Sprintf("0x%04X", v) }

// NewReport summarises a decoded snapshot.
func NewReport(s *snapshot.Snapshot) *Report {
	st := &s.State
	r := &Report{
		Version:        snapshot.Version,
		A:              hex8(st.A),
		B:              hex8(st.B),
		C:              hex8(st.C),
		D:              hex8(st.D),
		E:              hex8(st.E),
		H:              hex8(st.H),
		L:              hex8(st.L),
		Flags:          hex8(st.Flags.AsByte()),
		FlagBits:       st.Flags.String(),
		PC:             hex16(st.PC),
		SP:             hex16(st.SP),
		IntPending:     st.Int.Pending,
		IntData:        hex8(st.Int.Data),
		IntEnabled:     st.IntEnabled,
		SliceDuration:  st.SliceDuration,
		SliceMaxCycles: st.SliceMaxCycles,
		MemorySize:     len(s.Memory),
	}
	if !s.ROM.IsZero() {
		r.ROM = &Range{Start: hex16(s.ROM.Start), End: hex16(s.ROM.End)}
	}
	for _, b := range s.Memory {
		if b != 0 {
			r.NonZeroBytes++
		}
	}
	return r
}

// WriteJSON writes reports as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ReadJSON reads a single report.
func ReadJSON(r io.Reader) (*Report, error) {
	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &rep, nil
}

// ErrMismatch is returned by Compare when two reports differ.
var ErrMismatch = errors.New("report mismatch")

// Compare returns nil when r matches want, or an error wrapping
// ErrMismatch that names the differing JSON fields.
func (r *Report) Compare(want *Report) error {
	got, err := fields(r)
	if err != nil {
		return err
	}
	exp, err := fields(want)
	if err != nil {
		return err
	}
	var diff []string
	for k, v := range exp {
		if !reflect.DeepEqual(got[k], v) {
			diff = append(diff, k)
		}
	}
	for k := range got {
		if _, ok := exp[k]; !ok {
			diff = append(diff, k)
		}
	}
	if len(diff) == 0 {
		return nil
	}
	slices.Sort(diff)
	return fmt.Errorf("%w: %s", ErrMismatch, strings.Join(diff, ", "))
}

func fields(r *Report) (map[string]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteText prints the report the way the emulator's debug trace shows
// registers.
func (r *Report) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"PC : %s\tSP : %s\tFlags : %s (%s)\n"+
			"A : %s\tB : %s\tC : %s\tD : %s\tE : %s\tH : %s\tL : %s\n"+
			"INT : %t (%s)\tINTE : %t\n"+
			"Slice : %d ms / %d cycles\n",
		r.PC, r.SP, r.Flags, r.FlagBits,
		r.A, r.B, r.C, r.D, r.E, r.H, r.L,
		r.IntPending, r.IntData, r.IntEnabled,
		r.SliceDuration, r.SliceMaxCycles)
	if err != nil {
		return err
	}
	rom := "none"
	if r.ROM != nil {
		rom = r.ROM.Start + "-" + r.ROM.End
	}
	_, err = fmt.Fprintf(w, "ROM : %s\tMemory : %d bytes (%d non-zero)\n", rom, r.MemorySize, r.NonZeroBytes)
	return err
}
