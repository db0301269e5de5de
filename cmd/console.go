// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/flashprobe/pkg/readout"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	maxConsoleLines = 1000
	sidePanelWidth  = 30
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// deviceView is what the console knows of the device settings, learned
// from the feedback lines it echoes
type deviceView struct {
	address  string
	length   string
	mode     string
	endian   string
	readouts int
	errors   int
}

func newDeviceView() deviceView {
	return deviceView{
		address: "?",
		length:  "?",
		mode:    "?",
		endian:  "?",
	}
}

// observe updates the view from one device line and reports whether the
// line was feedback
func (d *deviceView) observe(line string) bool {
	switch {
	case strings.HasPrefix(line, readout.FeedbackAddress):
		d.address = "0x" + strings.TrimPrefix(line, readout.FeedbackAddress)
	case strings.HasPrefix(line, readout.FeedbackLength):
		d.length = "0x" + strings.TrimPrefix(line, readout.FeedbackLength)
	case line == readout.FeedbackBinary:
		d.mode = "binary"
	case line == readout.FeedbackHex:
		d.mode = "hex"
	case line == readout.FeedbackLittleEndian:
		d.endian = "little"
	case line == readout.FeedbackBigEndian:
		d.endian = "big"
	case line == readout.FeedbackStarted:
		d.readouts++
	case line == readout.FeedbackUnknown:
		d.errors++
	default:
		return false
	}
	return true
}

// consoleLine is one entry in the output pane
type consoleLine struct {
	text     string
	sent     bool
	feedback bool
}

// consoleModel is the Bubble Tea model for the interactive console
type consoleModel struct {
	client   *readout.Client
	connInfo string

	lines  []consoleLine
	device deviceView

	input    textinput.Model
	output   viewport.Model
	ready    bool
	width    int
	height   int
	lastErr  error
	quitting bool
	lost     bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type deviceLineMsg string

type deviceClosedMsg struct {
	err error
}

type sendResultMsg struct {
	err error
}

//////////////////////////////////////////////////////////////
// Command
//////////////////////////////////////////////////////////////

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive terminal console for a readout device",
	Long: `Open a full screen console on the connection. Type command lines at the
prompt; everything the device sends is shown in the output pane, and the
settings it echoes back are tracked in the side panel.

Keys: Enter sends, PgUp/PgDn scroll, Esc or Ctrl+C quits.`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
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

	transport := readout.NewStreamTransport(conn)
	client := readout.NewClient(transport, readout.DefaultClientTimeout)

	p := tea.NewProgram(initialConsoleModel(client, connInfo), tea.WithAltScreen())
	go consoleReader(p, client, transport)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// consoleReader forwards device lines to the program until the stream ends
func consoleReader(p *tea.Program, client *readout.Client, transport *readout.StreamTransport) {
	for {
		line, err := client.ReadLine()
		if err == nil {
			p.Send(deviceLineMsg(line))
			continue
		}
		select {
		case <-transport.Done():
			p.Send(deviceClosedMsg{err: transport.Err()})
			return
		default:
		}
	}
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialConsoleModel(client *readout.Client, connInfo string) consoleModel {
	ti := textinput.New()
	ti.Placeholder = "A08000000"
	ti.Prompt = "> "
	ti.CharLimit = readout.FrameDataMax
	ti.Width = readout.FrameDataMax + 1
	ti.Focus()

	return consoleModel{
		client:   client,
		connInfo: connInfo,
		lines:    make([]consoleLine, 0),
		device:   newDeviceView(),
		input:    ti,
		width:    80,
		height:   24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m consoleModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.output, cmd = m.output.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case deviceLineMsg:
		line := string(msg)
		feedback := m.device.observe(line)
		m.appendLine(consoleLine{text: line, feedback: feedback})

	case deviceClosedMsg:
		m.lost = true
		m.lastErr = msg.err

	case sendResultMsg:
		m.lastErr = msg.err
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the prompt contents as one command line
func (m consoleModel) submit() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	m.input.Reset()
	if m.lost {
		return m, nil
	}
	m.appendLine(consoleLine{text: line, sent: true})

	client := m.client
	return m, func() tea.Msg {
		return sendResultMsg{err: client.Send(line)}
	}
}

func (m *consoleModel) appendLine(l consoleLine) {
	m.lines = append(m.lines, l)
	if len(m.lines) > maxConsoleLines {
		m.lines = m.lines[len(m.lines)-maxConsoleLines:]
	}
	if m.ready {
		atBottom := m.output.AtBottom()
		m.output.SetContent(m.renderLines())
		if atBottom {
			m.output.GotoBottom()
		}
	}
}

func (m *consoleModel) resize() {
	w := m.width - sidePanelWidth - 4
	if w < 20 {
		w = 20
	}
	h := m.height - 6
	if h < 3 {
		h = 3
	}
	if !m.ready {
		m.output = viewport.New(w, h)
		m.ready = true
	} else {
		m.output.Width = w
		m.output.Height = h
	}
	m.output.SetContent(m.renderLines())
	m.output.GotoBottom()
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

var (
	consoleTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("12")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)
	consoleHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	consoleLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	consoleValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	consoleSentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	consoleErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	consoleBoxStyle    = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")).
				Padding(0, 1)
)

func (m consoleModel) renderLines() string {
	var s strings.Builder
	for i, l := range m.lines {
		if i > 0 {
			s.WriteString("\n")
		}
		switch {
		case l.sent:
			s.WriteString(consoleSentStyle.Render("> " + l.text))
		case l.text == readout.FeedbackUnknown:
			s.WriteString(consoleErrorStyle.Render(l.text))
		case l.feedback:
			s.WriteString(consoleValueStyle.Render(l.text))
		default:
			s.WriteString(l.text)
		}
	}
	return s.String()
}

func (m consoleModel) renderSettings() string {
	row := func(label, value string) string {
		return fmt.Sprintf("%s %s\n", consoleLabelStyle.Render(fmt.Sprintf("%-10s", label)), consoleValueStyle.Render(value))
	}
	var s strings.Builder
	s.WriteString(consoleHeaderStyle.Render("Device settings"))
	s.WriteString("\n\n")
	s.WriteString(row("Address", m.device.address))
	s.WriteString(row("Length", m.device.length))
	s.WriteString(row("Output", m.device.mode))
	s.WriteString(row("Endian", m.device.endian))
	s.WriteString(row("Readouts", fmt.Sprintf("%d", m.device.readouts)))
	s.WriteString(row("Rejected", fmt.Sprintf("%d", m.device.errors)))
	return s.String()
}

func (m consoleModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}
	if !m.ready {
		return "Initializing...\n"
	}

	var s strings.Builder
	s.WriteString(consoleTitleStyle.Render("FLASHPROBE CONSOLE"))
	s.WriteString(" ")
	status := m.connInfo
	if m.lost {
		status = consoleErrorStyle.Render("CONNECTION CLOSED")
	}
	s.WriteString(consoleHeaderStyle.Render(fmt.Sprintf("| %s | Esc=quit", status)))
	s.WriteString("\n")

	output := consoleBoxStyle.Render(m.output.View())
	settings := consoleBoxStyle.Width(sidePanelWidth).Height(m.output.Height).Render(m.renderSettings())
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, output, settings))
	s.WriteString("\n")

	s.WriteString(m.input.View())
	if m.lastErr != nil && !errors.Is(m.lastErr, readout.ErrTimeout) {
		s.WriteString("  ")
		s.WriteString(consoleErrorStyle.Render(m.lastErr.Error()))
	}
	s.WriteString("\n")
	return s.String()
}
