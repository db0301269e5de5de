// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

// Reporter produces the statistics report requested by the p/P command
type Reporter interface {
	ReportStatistics()
}

// Interpreter executes command frames against a ControlState and writes
// feedback to a Transport.
type Interpreter struct {
	state     *ControlState
	transport Transport
	reporter  Reporter
	stats     *Statistics
}

// NewInterpreter creates an interpreter. reporter and stats may be nil.
func NewInterpreter(state *ControlState, transport Transport, reporter Reporter, stats *Statistics) *Interpreter {
	return &Interpreter{
		state:     state,
		transport: transport,
		reporter:  reporter,
		stats:     stats,
	}
}

// Execute runs the command named by the first byte of frame. Empty frames
// and frames starting with CR, LF or NUL are ignored. Unknown commands leave
// the state untouched and produce an error line.
func (in *Interpreter) Execute(frame []byte) {
	if len(frame) == 0 {
		return
	}

	cmd := frame[0]
	switch cmd {
	case CR, LF, NUL:
		return

	case 'a', 'A', 'l', 'L':
		arg := ScanHex32(frame[1:])
		if cmd == 'a' || cmd == 'A' {
			addr := in.state.setAddress(arg.Value)
			in.sendWord(FeedbackAddress, addr)
		} else {
			length := in.state.setLength(arg.Value)
			in.sendWord(FeedbackLength, length)
		}

	case 'b', 'B':
		in.state.setTransmitHex(false)
		in.sendLine(FeedbackBinary)

	case 'h', 'H':
		in.state.setTransmitHex(true)
		in.sendLine(FeedbackHex)

	case CmdLittleEndian:
		in.state.setLittleEndian(true)
		in.sendLine(FeedbackLittleEndian)

	case CmdBigEndian:
		in.state.setLittleEndian(false)
		in.sendLine(FeedbackBigEndian)

	case 's', 'S':
		in.state.start()
		in.sendLine(FeedbackStarted)

	case 'p', 'P':
		if in.reporter != nil {
			in.reporter.ReportStatistics()
		}

	default:
		in.stats.unknownCommand()
		in.sendLine(FeedbackUnknown)
		return
	}

	in.stats.command()
}

// sendWord emits prefix, v as big-endian hex, and a line end
func (in *Interpreter) sendWord(prefix string, v uint32) {
	hex := Word32ToHex(v, BigEndian)
	msg := make([]byte, 0, len(prefix)+len(hex)+len(LineEnd))
	msg = append(msg, prefix...)
	msg = append(msg, hex[:]...)
	msg = append(msg, LineEnd...)
	in.send(msg)
}

func (in *Interpreter) sendLine(text string) {
	in.send([]byte(text + LineEnd))
}

func (in *Interpreter) send(msg []byte) {
	err := in.transport.SendBytes(msg)
	if err != nil {
		in.stats.sent(0, err)
		return
	}
	in.stats.sent(len(msg), nil)
}

// TransportReporter writes the statistics report to a transport
type TransportReporter struct {
	Stats     *Statistics
	Transport Transport
}

// ReportStatistics implements Reporter
func (r TransportReporter) ReportStatistics() {
	report := []byte(r.Stats.String())
	err := r.Transport.SendBytes(report)
	if err != nil {
		r.Stats.sent(0, err)
		return
	}
	r.Stats.sent(len(report), nil)
}
