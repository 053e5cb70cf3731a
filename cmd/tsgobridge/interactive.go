package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mitchellh/go-wordwrap"
)

const wrapWidth = 80

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD166"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type browserState int

const (
	stateList browserState = iota
	stateFilter
	stateDetail
)

// browser lists findings and shows one in detail with its source line.
type browser struct {
	title      string
	all        []finding
	visible    []finding
	filter     textinput.Model
	selected   int
	errorsOnly bool
	state      browserState
}

func newBrowser(title string, findings []finding) *browser {
	ti := textinput.New()
	ti.Placeholder = "text or file"
	ti.Prompt = "/"
	ti.Width = 40

	b := &browser{title: title, all: findings, filter: ti}
	b.apply()
	return b
}

// apply recomputes the visible findings from the filter text and the
// errors-only toggle.
func (b *browser) apply() {
	query := strings.ToLower(strings.TrimSpace(b.filter.Value()))
	b.visible = b.visible[:0]
	for _, f := range b.all {
		if b.errorsOnly && !f.isError() {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(f.Text), query) &&
			!strings.Contains(strings.ToLower(f.File), query) {
			continue
		}
		b.visible = append(b.visible, f)
	}
	if b.selected >= len(b.visible) {
		b.selected = max(len(b.visible)-1, 0)
	}
}

func (b *browser) Init() tea.Cmd {
	return nil
}

func (b *browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return b, nil
	}

	if b.state == stateFilter {
		switch key.String() {
		case "enter":
			b.filter.Blur()
			b.state = stateList
			b.apply()
			return b, nil
		case "esc":
			b.filter.Blur()
			b.filter.SetValue("")
			b.state = stateList
			b.apply()
			return b, nil
		}
		var cmd tea.Cmd
		b.filter, cmd = b.filter.Update(msg)
		b.apply()
		return b, cmd
	}

	switch key.String() {
	case "ctrl+c", "q":
		return b, tea.Quit

	case "up", "k":
		if b.state == stateList && b.selected > 0 {
			b.selected--
		}

	case "down", "j":
		if b.state == stateList && b.selected < len(b.visible)-1 {
			b.selected++
		}

	case "enter":
		switch b.state {
		case stateList:
			if len(b.visible) > 0 {
				b.state = stateDetail
			}
		case stateDetail:
			b.state = stateList
		}

	case "tab":
		if b.state == stateList {
			b.errorsOnly = !b.errorsOnly
			b.apply()
		}

	case "/":
		if b.state == stateList {
			b.state = stateFilter
			return b, b.filter.Focus()
		}

	case "esc":
		if b.state == stateDetail {
			b.state = stateList
		}
	}
	return b, nil
}

func (b *browser) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("tsgobridge " + b.title))
	s.WriteString(" ")
	s.WriteString(helpStyle.Render(summary(b.all)))
	s.WriteString("\n\n")

	switch b.state {
	case stateList, stateFilter:
		if len(b.visible) == 0 {
			s.WriteString(resultStyle.Render("Nothing matches."))
			s.WriteString("\n")
		}
		for i, f := range b.visible {
			line := formatFinding(f)
			if i == b.selected {
				s.WriteString(selectedStyle.Render("> " + line))
			} else {
				s.WriteString("  " + line)
			}
			s.WriteString("\n")
		}
		s.WriteString("\n")
		if b.state == stateFilter {
			s.WriteString(b.filter.View())
			s.WriteString("\n")
			s.WriteString(helpStyle.Render("enter apply • esc clear"))
		} else {
			mode := "all"
			if b.errorsOnly {
				mode = "errors only"
			}
			s.WriteString(helpStyle.Render("↑/↓ select • enter details • / filter • tab " + mode + " • q quit"))
		}

	case stateDetail:
		f := b.visible[b.selected]
		s.WriteString(severityStyle(f).Render(f.Severity))
		s.WriteString(" ")
		s.WriteString(typeStyle.Render(f.Origin))
		s.WriteString("\n")
		if loc := f.location(); loc != "" {
			s.WriteString(funcStyle.Render(loc))
			s.WriteString("\n")
		}
		s.WriteString("\n")
		s.WriteString(wordwrap.WrapString(f.Text, wrapWidth))
		s.WriteString("\n")
		if src := sourceLine(f); src != "" {
			s.WriteString("\n")
			s.WriteString("    " + src + "\n")
			s.WriteString("    " + caret(src, f.Column-1) + "\n")
		}
		for _, n := range f.Notes {
			s.WriteString("\n")
			s.WriteString(helpStyle.Render(wordwrap.WrapString("note: "+n, wrapWidth)))
		}
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("enter back • q quit"))
	}

	return s.String()
}

func severityStyle(f finding) lipgloss.Style {
	if f.isError() {
		return errorStyle
	}
	return warningStyle
}

func formatFinding(f finding) string {
	head := severityStyle(f).Render(fmt.Sprintf("%-7s", f.Severity)) + " " + typeStyle.Render(f.Origin)
	if loc := f.location(); loc != "" {
		head += " " + funcStyle.Render(loc)
	}
	text := f.Text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return head + " " + text
}

// sourceLine returns the line a finding points at, from the message itself
// or from the file on disk.
func sourceLine(f finding) string {
	if f.LineText != "" {
		return f.LineText
	}
	if f.File == "" || f.Line <= 0 {
		return ""
	}
	file, err := os.Open(filepath.FromSlash(f.File))
	if err != nil {
		return ""
	}
	defer file.Close()

	sc := bufio.NewScanner(file)
	for n := 1; sc.Scan(); n++ {
		if n == f.Line {
			return strings.TrimRight(sc.Text(), "\r")
		}
	}
	return ""
}

// caret marks column col of line, keeping tabs so the marker lines up.
func caret(line string, col int) string {
	var b strings.Builder
	for i, r := range line {
		if i >= col {
			break
		}
		if r == '\t' {
			b.WriteRune('\t')
		} else {
			b.WriteRune(' ')
		}
	}
	b.WriteString("^")
	return b.String()
}

func runInteractive(title string, findings []finding) error {
	p := tea.NewProgram(newBrowser(title, findings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
