// Package tui renders the Ollama settings dialog in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/nulzo/chat-registry/internal/cli"
	"github.com/nulzo/chat-registry/internal/credentials"
	"github.com/nulzo/chat-registry/internal/settings"
	"github.com/nulzo/chat-registry/internal/store"
	"github.com/nulzo/chat-registry/pkg/api"
)

type Config struct {
	Editor settings.HostEditor
	// Changes, when set, resyncs the form on external writes to the host.
	Changes <-chan store.Change
}

type changeMsg store.Change

type model struct {
	ctx     context.Context
	dialog  *settings.Dialog
	input   textinput.Model
	changes <-chan store.Change
	status  *api.Notification
	saved   bool
}

// Run shows the dialog until the user saves or cancels. It reports whether
// a new host was saved.
func Run(ctx context.Context, cfg Config) (bool, error) {
	m := newModel(ctx, cfg)
	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		return false, err
	}
	return final.(model).saved, nil
}

func newModel(ctx context.Context, cfg Config) model {
	status := &api.Notification{}
	dialog := settings.NewDialog(cfg.Editor, settings.NotifierFunc(func(n api.Notification) {
		*status = n
	}))
	dialog.Open(ctx)

	ti := textinput.New()
	ti.Placeholder = credentials.DefaultHost
	ti.Prompt = "› "
	ti.CharLimit = 2048
	ti.Width = 48
	ti.SetValue(dialog.Draft())
	ti.Focus()

	return model{
		ctx:     ctx,
		dialog:  dialog,
		input:   ti,
		changes: cfg.Changes,
		status:  status,
	}
}

func waitForChange(ch <-chan store.Change) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return changeMsg(c)
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChange(m.changes))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.dialog.Cancel()
			return m, tea.Quit
		case tea.KeyEnter:
			m.dialog.SetDraft(m.input.Value())
			if err := m.dialog.Save(m.ctx); err != nil {
				return m, nil
			}
			m.saved = true
			return m, tea.Quit
		}

	case changeMsg:
		if msg.Key == credentials.HostKey {
			m.dialog.Sync(m.ctx)
			m.input.SetValue(m.dialog.Draft())
		}
		return m, waitForChange(m.changes)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.dialog.SetDraft(m.input.Value())
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(cli.Style("Ollama Settings", cli.Bold))
	b.WriteString("\n")
	b.WriteString("Configure the host URL of your Ollama server.\n\n")

	if m.dialog.IsOpen() {
		b.WriteString("Host URL\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
	}

	switch m.status.Level {
	case settings.LevelError:
		b.WriteString(fmt.Sprintf("%s %s\n", cli.CrossMark(), m.status.Message))
	case settings.LevelSuccess:
		b.WriteString(fmt.Sprintf("%s %s\n", cli.CheckMark(), m.status.Message))
	}

	if m.dialog.IsOpen() {
		b.WriteString(cli.Style("enter save • esc cancel", cli.Dim))
		b.WriteString("\n")
	}
	return b.String()
}
