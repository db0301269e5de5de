// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

// Dumper is the readout loop. It watches the ControlState for start
// requests and streams the configured window from Memory, one word per Step.
// It only reads the ControlState.
type Dumper struct {
	state     *ControlState
	mem       Memory
	transport Transport
	stats     *Statistics

	served    uint64 // Starts value of the last request taken
	running   bool
	cursor    uint32
	remaining uint32 // words left
	lineWords int
	lastHex   bool
}

// NewDumper creates a readout loop. stats may be nil.
func NewDumper(state *ControlState, mem Memory, transport Transport, stats *Statistics) *Dumper {
	return &Dumper{
		state:     state,
		mem:       mem,
		transport: transport,
		stats:     stats,
	}
}

// Running reports whether a readout is in progress
func (d *Dumper) Running() bool {
	return d.running
}

// Step emits at most one word. It reports whether any work was done.
//
// A new readout is latched when the state is active and its start counter
// has moved past the last one served. Address and length are fixed for the
// whole readout; output mode and byte order are re-read for every word.
func (d *Dumper) Step() bool {
	s := d.state.Snapshot()

	if !d.running {
		if !s.Active || s.Starts == d.served {
			return false
		}
		d.served = s.Starts
		d.running = true
		d.cursor = s.Address
		d.remaining = s.Length / WordSize
		d.lineWords = 0
		d.lastHex = false
		d.stats.readoutStarted()
	}

	if d.remaining == 0 {
		d.finish()
		return true
	}

	word, err := d.mem.ReadWord(d.cursor)
	if err != nil {
		d.stats.readError()
		word = 0
	}

	out := EncodeWord(word, s.TransmitHex, s.Endianness())
	d.lastHex = s.TransmitHex
	if s.TransmitHex {
		d.lineWords++
		if d.lineWords == hexWordsPerLine {
			out = append(out, LineEnd...)
			d.lineWords = 0
		}
	}
	d.send(out)
	d.stats.wordSent()

	d.cursor += WordSize
	d.remaining--
	if d.remaining == 0 {
		d.finish()
	}
	return true
}

func (d *Dumper) finish() {
	if d.lastHex && d.lineWords > 0 {
		d.send([]byte(LineEnd))
	}
	d.running = false
	d.lineWords = 0
	d.stats.readoutDone()
}

func (d *Dumper) send(p []byte) {
	err := d.transport.SendBytes(p)
	if err != nil {
		d.stats.sent(0, err)
		return
	}
	d.stats.sent(len(p), nil)
}
