package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nulzo/chat-registry/internal/credentials"
	"github.com/nulzo/chat-registry/internal/settings"
	"github.com/nulzo/chat-registry/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEditor struct {
	host  string
	saves []string
}

func (f *fakeEditor) Host(context.Context) string { return f.host }

func (f *fakeEditor) SaveHost(_ context.Context, draft string) (string, error) {
	h := strings.TrimSpace(draft)
	if h == "" {
		return "", settings.ErrEmptyHost
	}
	f.saves = append(f.saves, h)
	f.host = h
	return h, nil
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok)
	return nm, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModel_OpensWithPersistedHost(t *testing.T) {
	m := newModel(context.Background(), Config{Editor: &fakeEditor{host: "http://gpu:11434"}})

	assert.True(t, m.dialog.IsOpen())
	assert.Equal(t, "http://gpu:11434", m.input.Value())
	assert.Contains(t, m.View(), "Ollama Settings")
}

func TestModel_TypingUpdatesDraft(t *testing.T) {
	m := newModel(context.Background(), Config{Editor: &fakeEditor{host: "http://a"}})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(":1")})
	assert.Equal(t, "http://a:1", m.dialog.Draft())
}

func TestModel_EnterSavesTrimmedAndQuits(t *testing.T) {
	ed := &fakeEditor{host: credentials.DefaultHost}
	m := newModel(context.Background(), Config{Editor: ed})
	m.input.SetValue("  http://gpu:11434 ")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, isQuit(cmd))
	assert.True(t, m.saved)
	assert.False(t, m.dialog.IsOpen())
	assert.Equal(t, []string{"http://gpu:11434"}, ed.saves)
	assert.Contains(t, m.View(), settings.MsgSaved)
}

func TestModel_EnterWithEmptyHostStaysOpen(t *testing.T) {
	ed := &fakeEditor{host: credentials.DefaultHost}
	m := newModel(context.Background(), Config{Editor: ed})
	m.input.SetValue("   ")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, isQuit(cmd))
	assert.False(t, m.saved)
	assert.True(t, m.dialog.IsOpen())
	assert.Empty(t, ed.saves)
	assert.Contains(t, m.View(), settings.MsgEmptyHost)
}

func TestModel_EscCancelsWithoutSaving(t *testing.T) {
	ed := &fakeEditor{host: credentials.DefaultHost}
	m := newModel(context.Background(), Config{Editor: ed})
	m.input.SetValue("http://other")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, isQuit(cmd))
	assert.False(t, m.saved)
	assert.False(t, m.dialog.IsOpen())
	assert.Empty(t, ed.saves)
}

func TestModel_ExternalHostChangeResyncs(t *testing.T) {
	ed := &fakeEditor{host: "http://old"}
	changes := make(chan store.Change, 1)
	m := newModel(context.Background(), Config{Editor: ed, Changes: changes})

	ed.host = "http://new"
	m, cmd := update(t, m, changeMsg{Key: credentials.HostKey, Value: "http://new"})
	assert.Equal(t, "http://new", m.input.Value())
	assert.Equal(t, "http://new", m.dialog.Draft())
	assert.NotNil(t, cmd)

	m, _ = update(t, m, changeMsg{Key: "theme", Value: "dark"})
	assert.Equal(t, "http://new", m.input.Value())
}
