// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/flashprobe/pkg/readout"
)

// Output formats for dump
const (
	formatBinary = "bin"
	formatCBOR   = "cbor"
)

var (
	dumpAddress      string
	dumpLength       string
	dumpHex          bool
	dumpLittleEndian bool
	dumpOut          string
	dumpFormat       string
	dumpTimeout      time.Duration
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Read out a memory window from the device",
	Long: `Configure the readout window and mode on the device, start the readout and
save what it sends.

The window is aligned the way the device aligns it: the address rounds down
and the length rounds up to whole 4-byte words.

Formats:
  bin  - raw memory bytes in target order
  cbor - CBOR capture with window, mode, words, timestamp and CRC-16

Example:
  flashprobe dump -p /dev/ttyUSB0 --address 0x08000000 --length 0x4000 --out flash.bin`,
	RunE: runDump,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Verify a CBOR capture and print its summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(inspectCmd)

	dumpCmd.Flags().StringVar(&dumpAddress, "address", "0", "Start address (0x prefix for hex)")
	dumpCmd.Flags().StringVar(&dumpLength, "length", "0", "Readout length in bytes (0x prefix for hex)")
	dumpCmd.Flags().BoolVar(&dumpHex, "hex", true, "Transfer as hex text instead of binary")
	dumpCmd.Flags().BoolVar(&dumpLittleEndian, "little-endian", false, "Transfer words little endian")
	dumpCmd.Flags().StringVarP(&dumpOut, "out", "o", "-", "Output file, - for stdout")
	dumpCmd.Flags().StringVar(&dumpFormat, "format", formatBinary, "Output format: bin or cbor")
	dumpCmd.Flags().DurationVar(&dumpTimeout, "timeout", readout.DefaultClientTimeout, "Longest silence tolerated from the device")
}

// parseWord parses a 32-bit value in Go literal syntax (decimal, 0x, 0o, 0b)
func parseWord(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.ReplaceAll(strings.TrimSpace(s), "_", ""), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return uint32(v), nil
}

// dumpOptions builds the readout request from the dump flags
func dumpOptions() (readout.DumpOptions, error) {
	addr, err := parseWord(dumpAddress)
	if err != nil {
		return readout.DumpOptions{}, fmt.Errorf("--address: %w", err)
	}
	length, err := parseWord(dumpLength)
	if err != nil {
		return readout.DumpOptions{}, fmt.Errorf("--length: %w", err)
	}
	switch dumpFormat {
	case formatBinary, formatCBOR:
	default:
		return readout.DumpOptions{}, fmt.Errorf("--format must be %s or %s, got %q", formatBinary, formatCBOR, dumpFormat)
	}

	opts := readout.DumpOptions{
		Address:    addr,
		Length:     length,
		Hex:        dumpHex,
		Endianness: readout.BigEndian,
	}
	if dumpLittleEndian {
		opts.Endianness = readout.LittleEndian
	}
	return opts, nil
}

// writeDump saves c to w in the given format
func writeDump(w io.Writer, c *readout.Capture, format string) error {
	if format == formatCBOR {
		return readout.WriteCapture(w, c)
	}
	_, err := w.Write(c.Bytes())
	return err
}

func runDump(cmd *cobra.Command, args []string) error {
	opts, err := dumpOptions()
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	conn, connInfo, err := OpenConnection(cfg.Serial, false)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	logger.Info("starting readout",
		zap.String("connection", connInfo),
		zap.String("address", fmt.Sprintf("0x%08X", opts.Address)),
		zap.String("length", fmt.Sprintf("0x%X", opts.Length)),
		zap.Bool("hex", opts.Hex),
		zap.Stringer("endianness", opts.Endianness))

	client := readout.NewClient(readout.NewStreamTransport(conn), dumpTimeout)
	start := time.Now()
	capture, err := client.Dump(ctx, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if dumpOut != "-" {
		f, err := os.Create(dumpOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := writeDump(out, capture, dumpFormat); err != nil {
		return err
	}

	logger.Info("readout saved",
		zap.String("out", dumpOut),
		zap.String("format", dumpFormat),
		zap.Int("words", len(capture.Words)),
		zap.String("crc", fmt.Sprintf("0x%04X", capture.Checksum())),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// describeCapture renders the inspect summary
func describeCapture(c *readout.Capture) string {
	mode := "binary"
	if c.Hex {
		mode = "hex"
	}
	var s strings.Builder
	fmt.Fprintf(&s, "Address:    0x%08X\n", c.Address)
	fmt.Fprintf(&s, "Length:     0x%X (%d bytes)\n", c.Length, c.Length)
	fmt.Fprintf(&s, "Mode:       %s, %s\n", mode, c.Endianness)
	fmt.Fprintf(&s, "Words:      %d\n", len(c.Words))
	fmt.Fprintf(&s, "Taken:      %s\n", c.Taken.Format(time.RFC3339))
	fmt.Fprintf(&s, "CRC-16:     0x%04X\n", c.Checksum())
	return s.String()
}

func runInspect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	capture, err := readout.ReadCapture(f)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), describeCapture(capture))
	return nil
}
