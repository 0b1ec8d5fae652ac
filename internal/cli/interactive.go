package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"speller/internal/corrector"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	typedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	suggestionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	misspelledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Underline(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type tryModel struct {
	ctx    context.Context
	sc     *corrector.SpellCorrector
	input  textinput.Model
	banner []corrector.BannerItem
	check  corrector.CheckResult
	err    error
}

func newTryModel(ctx context.Context, sc *corrector.SpellCorrector) *tryModel {
	ti := textinput.New()
	ti.Placeholder = "start typing"
	ti.Prompt = "> "
	ti.Width = 60
	ti.Focus()
	return &tryModel{ctx: ctx, sc: sc, input: ti}
}

func (m *tryModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *tryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			// accept the first suggestion for the word being typed
			if len(m.banner) > 1 {
				text := m.input.Value()
				word := lastWord(text)
				m.input.SetValue(text[:len(text)-len(word)] + m.banner[1].Value + " ")
				m.input.CursorEnd()
				m.refresh()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.refresh()
	}
	return m, cmd
}

func (m *tryModel) refresh() {
	text := m.input.Value()
	m.banner, m.err = m.sc.Banner(m.ctx, lastWord(text))
	if m.err != nil {
		return
	}
	m.check, m.err = m.sc.CheckText(m.ctx, text)
}

func (m *tryModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("speller"))
	b.WriteString(" ")
	b.WriteString(m.sc.Speller().Locale())
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	} else {
		parts := make([]string, len(m.banner))
		for i, it := range m.banner {
			switch it.Source {
			case corrector.SourceTyped:
				parts[i] = typedStyle.Render(it.Title)
			case corrector.SourceUser:
				parts[i] = userStyle.Render(it.Title)
			default:
				parts[i] = suggestionStyle.Render(it.Title)
			}
		}
		b.WriteString(strings.Join(parts, " | "))
		b.WriteString("\n\n")
		b.WriteString(m.highlighted())
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("tab accept suggestion • esc quit"))
	return b.String()
}

// highlighted renders the input with misspelled words marked.
func (m *tryModel) highlighted() string {
	text := m.input.Value()
	var b strings.Builder
	pos := 0
	for _, ms := range m.check.Misspellings {
		if ms.Start < pos || ms.End > len(text) {
			continue
		}
		b.WriteString(text[pos:ms.Start])
		b.WriteString(misspelledStyle.Render(text[ms.Start:ms.End]))
		pos = ms.End
	}
	b.WriteString(text[pos:])
	return b.String()
}

func runInteractive(ctx context.Context, sc *corrector.SpellCorrector) error {
	p := tea.NewProgram(newTryModel(ctx, sc), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
