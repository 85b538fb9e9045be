package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MartinO24/BarkBack/coordinator"
)

// TUI message types
type StateMsg coordinator.State
type AlertMsg struct{ Text string }
type UpdateMsg struct{ Version string }
type tickMsg time.Time

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	recStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	standbyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	busyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	clipStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	playingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selTextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	filenameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	copiedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
)

type tuiModel struct {
	ops *coordinator.Coordinator
	ctx context.Context

	st            coordinator.State
	cursor        int
	recordStart   time.Time
	elapsed       float64
	notice        string
	copiedID      string
	updateVer     string
	width, height int
}

func NewTUIProgram(ctx context.Context, ops *coordinator.Coordinator) *tea.Program {
	m := tuiModel{ops: ops, ctx: ctx, st: ops.State()}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// op runs a coordinator gesture off the update loop.
func op(f func()) tea.Cmd {
	return func() tea.Msg {
		f()
		return nil
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.st.Recording {
			m.elapsed = time.Since(m.recordStart).Seconds()
		}
		return m, tuiTick()

	case StateMsg:
		wasRecording := m.st.Recording
		m.st = coordinator.State(msg)
		if m.st.Recording && !wasRecording {
			m.recordStart = time.Now()
			m.elapsed = 0
		}
		if m.cursor >= len(m.st.History) {
			m.cursor = len(m.st.History) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}

	case AlertMsg:
		m.notice = msg.Text

	case UpdateMsg:
		m.updateVer = msg.Version

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case " ", "r":
		m.notice = ""
		return m, op(func() { m.ops.ToggleRecording(m.ctx) })

	case "p":
		m.notice = ""
		return m, op(func() { m.ops.PlayLatest(m.ctx) })

	case "u":
		m.notice = ""
		return m, op(func() { m.ops.Upload(m.ctx) })

	case "enter":
		if len(m.st.History) == 0 {
			return m, nil
		}
		item := m.st.History[m.cursor]
		m.notice = ""
		return m, op(func() { m.ops.Play(m.ctx, item.URI) })

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.copiedID = ""
		}

	case "down", "j":
		if m.cursor < len(m.st.History)-1 {
			m.cursor++
			m.copiedID = ""
		}

	case "c":
		if len(m.st.History) == 0 {
			return m, nil
		}
		item := m.st.History[m.cursor]
		if err := clipboard.WriteAll(item.Translation); err != nil {
			m.notice = fmt.Sprintf("copy failed: %v", err)
		} else {
			m.copiedID = item.ID
		}

	case "x":
		m.notice = ""
		return m, op(func() { m.ops.ClearHistory() })

	case "e":
		m.notice = ""
		return m, op(func() { m.ops.ClearError() })
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("BarkBack") + helpStyle.Render("  "+version) + "\n")

	// status line
	switch {
	case m.st.Recording:
		b.WriteString(recStyle.Render(fmt.Sprintf("● REC %.1fs", m.elapsed)) + "\n")
	case m.st.Uploading:
		b.WriteString(busyStyle.Render("↑ translating...") + "\n")
	case m.st.LoadingHistory:
		b.WriteString(busyStyle.Render("… loading history") + "\n")
	default:
		b.WriteString(standbyStyle.Render("○ ready") + "\n")
	}

	// latest clip line
	if m.st.Latest != "" {
		line := clipStyle.Render(fmt.Sprintf("clip: %s (%.1fs)", filepath.Base(m.st.Latest), m.st.LatestSeconds))
		if m.st.Playing == m.st.Latest {
			line += " " + playingStyle.Render("▶ playing")
		}
		b.WriteString(line + "\n")
	} else if !m.st.Recording {
		b.WriteString(standbyStyle.Render("no clip yet, press space to record") + "\n")
	}

	// error and notice lines
	if m.st.LastError != "" {
		b.WriteString(errorStyle.Render("⚠ "+m.st.LastError) + helpStyle.Render("  (e to dismiss)") + "\n")
	}
	if m.notice != "" && m.notice != m.st.LastError {
		b.WriteString(noticeStyle.Render(m.notice) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderHistory())
	b.WriteString("\n")
	if m.updateVer != "" {
		b.WriteString(busyStyle.Render("update available: "+m.updateVer) + helpStyle.Render("  (run: barkback update)") + "\n")
	}
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m tuiModel) renderHistory() string {
	if len(m.st.History) == 0 {
		return standbyStyle.Render("no translations yet") + "\n"
	}

	var b strings.Builder
	b.WriteString(noticeStyle.Render(fmt.Sprintf("history (%d)", len(m.st.History))) + "\n")

	wrapWidth := m.width - 6
	if wrapWidth < 20 {
		wrapWidth = 20
	}

	// keep the list inside the window: status block above is ~8 lines,
	// every item costs at least two
	maxItems := (m.height - 10) / 2
	if maxItems < 1 {
		maxItems = 1
	}
	start := 0
	if m.cursor >= maxItems {
		start = m.cursor - maxItems + 1
	}

	for i := start; i < len(m.st.History) && i < start+maxItems; i++ {
		item := m.st.History[i]

		prefix := "  "
		style := textStyle
		if i == m.cursor {
			prefix = "> "
			style = selTextStyle
		}

		lines := wrapText(item.Translation, wrapWidth)
		for j, line := range lines {
			head := "  "
			if j == 0 {
				head = prefix
			}
			b.WriteString(head + style.Render(line))
			if j == len(lines)-1 {
				if item.ID == m.copiedID {
					b.WriteString(" " + copiedStyle.Render("[✓ copied]"))
				}
				if m.st.Playing == item.URI {
					b.WriteString(" " + playingStyle.Render("▶"))
				}
			}
			b.WriteString("\n")
		}
		b.WriteString("    " + filenameStyle.Render(item.Filename) + "\n")
	}
	if start+maxItems < len(m.st.History) {
		b.WriteString(standbyStyle.Render(fmt.Sprintf("  … %d more", len(m.st.History)-start-maxItems)) + "\n")
	}
	return b.String()
}

func (m tuiModel) renderHelp() string {
	keys := []struct{ key, what string }{
		{"space", "record"},
		{"p", "play clip"},
		{"u", "translate"},
		{"enter", "replay item"},
		{"c", "copy"},
		{"x", "clear"},
		{"q", "quit"},
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = helpKeyStyle.Render(k.key) + helpStyle.Render(" "+k.what)
	}
	return strings.Join(parts, helpStyle.Render(" · ")) + "\n"
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
