package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/oisee/i8080/pkg/bus"
	"github.com/oisee/i8080/pkg/cpu"
	"github.com/oisee/i8080/pkg/result"
	"github.com/oisee/i8080/pkg/snapshot"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "i8080snap",
		Short:        "Build, inspect and patch Intel 8080 machine snapshots",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newNewCmd(), newInspectCmd(), newDumpCmd(), newPokeCmd(), newVerifyCmd())
	return rootCmd
}

// new command
func newNewCmd() *cobra.Command {
	var (
		rom     romValue
		loads   []string
		pc      addrValue
		a       byteValue
		slice   uint32
		freq    float64
		inte    bool
		output  string
		verbose bool
	)
	top := addrValue(0xFFFF)
	sp := addrValue(cpu.DefaultSP)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a snapshot from binary images",
		Example: "  i8080snap new --load bin/helloworld.bin@0x0100 --pc 0x0100 -o hello.snap\n" +
			"  i8080snap new --load rom.bin --rom 0x0000-0x1FFF --freq 2 -o altair.snap",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := cpu.NewState()
			st.PC = uint16(pc)
			st.SP = uint16(sp)
			st.A = uint8(a)
			st.IntEnabled = inte
			if slice != 0 {
				st.SliceDuration = slice
			}
			if freq > 0 {
				st.SetFreq(freq)
			}

			b := bus.New(uint16(top))
			for _, l := range loads {
				spec, err := parseLoadSpec(l)
				if err != nil {
					return err
				}
				if spec.path == "-" {
					err = b.Load(cmd.InOrStdin(), spec.org)
				} else {
					err = b.LoadBin(spec.path, spec.org)
				}
				if err != nil {
					return err
				}
				if verbose {
					fmt.Fprintf(cmd.ErrOrStderr(), "loaded %s at $%04X\n", spec.path, spec.org)
				}
			}
			if rom.set {
				b.SetROMSpace(rom.start, rom.end)
			}

			if err := snapshot.SaveFile(output, &st, b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Written %d bytes to %s\n", snapshot.HeaderSize+b.Len(), output)
			return nil
		},
	}
	f := cmd.Flags()
	f.Var(&top, "top", "Highest address (capacity is top+1)")
	f.Var(&rom, "rom", "Write-protected range, e.g. 0x0000-0x00FF")
	f.StringArrayVar(&loads, "load", nil, "Binary image to load as path[@org], - for stdin (repeatable)")
	f.Var(&pc, "pc", "Program counter")
	f.Var(&sp, "sp", "Stack pointer")
	f.Var(&a, "a", "Accumulator")
	f.Uint32Var(&slice, "slice", 0, "Slice duration in ms (0 = default)")
	f.Float64Var(&freq, "freq", 0, "CPU frequency in MHz, sets slice max cycles")
	f.BoolVar(&inte, "inte", false, "Start with interrupts enabled")
	f.StringVarP(&output, "output", "o", "", "Output snapshot path")
	f.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

// inspect command
func newInspectCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect [file.snap]",
		Short: "Print the machine state stored in a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := snapshot.LoadFile(args[0])
			if err != nil {
				return err
			}
			rep := result.NewReport(s)
			if asJSON {
				return result.WriteJSON(cmd.OutOrStdout(), rep)
			}
			return rep.WriteText(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

// dump command
func newDumpCmd() *cobra.Command {
	var (
		from   addrValue
		length int
		width  int
	)

	cmd := &cobra.Command{
		Use:   "dump [file.snap]",
		Short: "Hex dump the memory stored in a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := snapshot.LoadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if width <= 0 {
				width = rowWidth(out)
			}
			start := int(from)
			end := len(s.Memory)
			if length > 0 && start+length < end {
				end = start + length
			}
			return hexDump(out, s.Memory, start, end, width)
		},
	}
	f := cmd.Flags()
	f.Var(&from, "from", "Start address")
	f.IntVarP(&length, "length", "n", 256, "Number of bytes (0 = to the end)")
	f.IntVarP(&width, "width", "w", 0, "Bytes per row (0 = fit the terminal)")
	return cmd
}

// poke command
func newPokeCmd() *cobra.Command {
	var (
		word    bool
		output  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "poke [file.snap] [addr=value]...",
		Short: "Write bytes or words into a snapshot, honouring its ROM range",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := snapshot.LoadFile(args[0])
			if err != nil {
				return err
			}
			b, err := s.Bus()
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			st := s.State

			dropped := 0
			for _, arg := range args[1:] {
				k, v, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("cannot parse %q: want addr=value", arg)
				}
				addr, err := parseAddr(k)
				if err != nil {
					return err
				}
				before := b.ReadWord(addr)
				if word {
					val, err := parseAddr(v)
					if err != nil {
						return err
					}
					if !writable(b, addr) {
						dropped++
					}
					b.WriteWord(addr, val)
				} else {
					val, err := parseByte(v)
					if err != nil {
						return err
					}
					if !writable(b, addr) {
						dropped++
					}
					b.WriteByte(addr, val)
				}
				if verbose {
					fmt.Fprintf(cmd.ErrOrStderr(), "  $%04X: %04X -> %04X\n", addr, before, b.ReadWord(addr))
				}
			}

			if output == "" {
				output = args[0]
			}
			if err := snapshot.SaveFile(output, &st, b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Patched %d location(s), %d dropped (ROM or out of range)\n",
				len(args)-1-dropped, dropped)
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&word, "word", false, "Values are 16-bit words stored little-endian")
	f.StringVarP(&output, "output", "o", "", "Output path (default: overwrite input)")
	f.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	return cmd
}

// verify command
func newVerifyCmd() *cobra.Command {
	var (
		numWorkers int
		verbose    bool
		expectPath string
	)

	cmd := &cobra.Command{
		Use:   "verify [file.snap]...",
		Short: "Check that snapshot files decode cleanly",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if numWorkers <= 0 {
				numWorkers = runtime.NumCPU()
			}
			var expect *result.Report
			if expectPath != "" {
				f, err := os.Open(expectPath)
				if err != nil {
					return err
				}
				expect, err = result.ReadJSON(f)
				f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", expectPath, err)
				}
			}
			table := result.NewTable()

			var g errgroup.Group
			g.SetLimit(numWorkers)
			for _, path := range args {
				path := path
				g.Go(func() error {
					s, err := snapshot.LoadFile(path)
					if err != nil {
						table.Add(result.Check{Path: path, Err: err})
						return nil
					}
					rep := result.NewReport(s)
					if expect != nil {
						if err := rep.Compare(expect); err != nil {
							table.Add(result.Check{Path: path, Report: rep, Err: err})
							return nil
						}
					}
					table.Add(result.Check{Path: path, Report: rep})
					return nil
				})
			}
			_ = g.Wait()

			out := cmd.OutOrStdout()
			for _, c := range table.Checks() {
				if !c.OK() {
					fmt.Fprintf(out, "FAIL %s: %v\n", c.Path, c.Err)
					continue
				}
				if verbose {
					fmt.Fprintf(out, "ok   %s (PC=%s, %d bytes)\n", c.Path, c.Report.PC, c.Report.MemorySize)
				}
			}
			fmt.Fprintf(out, "Verified %d snapshot(s), %d failed\n", table.Len(), table.Failed())
			if n := table.Failed(); n > 0 {
				return fmt.Errorf("%d snapshot(s) failed verification", n)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&numWorkers, "workers", 0, "Number of workers (0 = NumCPU)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().StringVar(&expectPath, "expect", "", "JSON report (from inspect --json) every snapshot must match")
	return cmd
}

// writable reports whether a CPU write to addr would land. Word writes
// are decided by their first address alone, as in Bus.WriteWord.
func writable(b *bus.Bus, addr uint16) bool {
	if int(addr) >= b.Len() {
		return false
	}
	start, end := b.ROMSpace()
	return !b.HasROMSpace() || addr < start || addr > end
}

func printable(b byte) byte {
	if b < 0x20 || b > 0x7E {
		return '.'
	}
	return b
}

func hexDump(w io.Writer, mem []byte, start, end, width int) error {
	if start >= len(mem) {
		return fmt.Errorf("start $%04X is past the end of memory (%d bytes)", start, len(mem))
	}
	var sb strings.Builder
	for row := start; row < end; row += width {
		sb.Reset()
		fmt.Fprintf(&sb, "%04X ", row)
		ascii := make([]byte, 0, width)
		for i := 0; i < width; i++ {
			if row+i < end {
				fmt.Fprintf(&sb, " %02X", mem[row+i])
				ascii = append(ascii, printable(mem[row+i]))
			} else {
				sb.WriteString("   ")
			}
		}
		fmt.Fprintf(&sb, "  %s\n", ascii)
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}
