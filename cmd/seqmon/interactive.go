package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/crossbind/seqbridge"
	"github.com/crossbind/seqbridge/bridge"
	"github.com/crossbind/seqbridge/config"
)

type tickMsg time.Time

type inspectorModel struct {
	bridge  *bridge.Bridge
	stats   []bridge.Stat
	input   textinput.Model
	status  string
	refresh time.Duration
	leak    int
}

func newInspectorModel(b *bridge.Bridge, cfg *config.Config) *inspectorModel {
	ti := textinput.New()
	ti.Placeholder = "inc <refnum> | dec <refnum> | reg <payload> | q"
	ti.Focus()
	ti.CharLimit = 64

	return &inspectorModel{
		bridge:  b,
		stats:   b.Stats(),
		input:   ti,
		refresh: cfg.RefreshInterval(),
		leak:    cfg.LeakThreshold,
	}
}

func runInteractive(b *bridge.Bridge, cfg *config.Config) error {
	p := tea.NewProgram(newInspectorModel(b, cfg))
	_, err := p.Run()
	return err
}

func (m *inspectorModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.tick())
}

func (m *inspectorModel) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "q" || line == "quit" {
				return m, tea.Quit
			}
			m.status = m.execute(line)
			m.stats = m.bridge.Stats()
			return m, nil
		}

	case tickMsg:
		m.stats = m.bridge.Stats()
		return m, m.tick()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *inspectorModel) execute(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}

	switch fields[0] {
	case "inc", "dec":
		if len(fields) != 2 {
			return warnStyle.Render(fmt.Sprintf("usage: %s <refnum>", fields[0]))
		}
		n, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			return warnStyle.Render(fmt.Sprintf("bad refnum %q", fields[1]))
		}
		ref := seqbridge.Refnum(n)

		if fields[0] == "inc" {
			err = m.bridge.IncRef(ref)
		} else {
			err = m.bridge.DecRef(ref)
		}
		if err != nil {
			return warnStyle.Render(err.Error())
		}
		return localStyle.Render(fmt.Sprintf("%s_ref(%d) ok", fields[0], ref))

	case "reg":
		payload := strings.Join(fields[1:], " ")
		if payload == "" {
			payload = "anonymous"
		}
		ref, err := m.bridge.Register(payload)
		if err != nil {
			return warnStyle.Render(err.Error())
		}
		return localStyle.Render(fmt.Sprintf("registered refnum %d", ref))

	default:
		return warnStyle.Render(fmt.Sprintf("unknown command %q", fields[0]))
	}
}

func (m *inspectorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("seqbridge reference table"))
	b.WriteString("\n\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("%8s  %5s  %-6s  %s", "REFNUM", "COUNT", "OWNER", "PAYLOAD")))
	b.WriteString("\n")

	if len(m.stats) == 0 {
		b.WriteString(helpStyle.Render("  (no refnums tracked)"))
		b.WriteString("\n")
	}
	for _, s := range m.stats {
		owner, style := "host", hostStyle
		if s.Ref.Local() {
			owner, style = "local", localStyle
		}
		payload := ""
		if s.Payload != nil {
			payload = fmt.Sprintf("%v", s.Payload)
		}
		b.WriteString(style.Render(fmt.Sprintf("%8d  %5d  %-6s  %s", s.Ref, s.Count, owner, payload)))
		b.WriteString("\n")
	}

	if m.leak > 0 && len(m.stats) > m.leak {
		b.WriteString(warnStyle.Render(fmt.Sprintf(
			"warning: %d tracked refnums exceed leak threshold %d", len(m.stats), m.leak)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: run command • esc: quit"))
	b.WriteString("\n")

	return b.String()
}
