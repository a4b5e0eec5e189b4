package settings

import (
	"context"
	"errors"
	"strings"

	"github.com/nulzo/chat-registry/pkg/api"
)

const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// HostEditor is the part of Service the dialog needs.
type HostEditor interface {
	Host(ctx context.Context) string
	SaveHost(ctx context.Context, draft string) (string, error)
}

// Notifier receives toast-style messages.
type Notifier interface {
	Notify(n api.Notification)
}

type NotifierFunc func(n api.Notification)

func (f NotifierFunc) Notify(n api.Notification) { f(n) }

// Dialog is the modal form bound to the persisted Ollama host. It is not
// safe for concurrent use; drive it from one goroutine.
type Dialog struct {
	editor HostEditor
	notify Notifier
	// OnOpenChange is called with the new state whenever the dialog opens
	// or closes.
	OnOpenChange func(open bool)

	open  bool
	draft string
}

func NewDialog(editor HostEditor, notify Notifier) *Dialog {
	if notify == nil {
		notify = NotifierFunc(func(api.Notification) {})
	}
	return &Dialog{editor: editor, notify: notify}
}

func (d *Dialog) IsOpen() bool  { return d.open }
func (d *Dialog) Draft() string { return d.draft }

// SetDraft records user input. Ignored while closed.
func (d *Dialog) SetDraft(v string) {
	if d.open {
		d.draft = v
	}
}

// Open loads the current persisted host into the draft.
func (d *Dialog) Open(ctx context.Context) {
	d.draft = d.editor.Host(ctx)
	d.setOpen(true)
}

// Sync resets the draft to the persisted value after an external change.
// Ignored while closed; Open reads fresh anyway.
func (d *Dialog) Sync(ctx context.Context) {
	if d.open {
		d.draft = d.editor.Host(ctx)
	}
}

// Save validates and persists the draft. On failure the dialog stays open
// and the error is both returned and sent to the notifier.
func (d *Dialog) Save(ctx context.Context) error {
	if !d.open {
		return nil
	}

	if strings.TrimSpace(d.draft) == "" {
		d.notify.Notify(api.Notification{Level: LevelError, Message: MsgEmptyHost})
		return ErrEmptyHost
	}

	host, err := d.editor.SaveHost(ctx, d.draft)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, ErrEmptyHost) {
			msg = MsgEmptyHost
		}
		d.notify.Notify(api.Notification{Level: LevelError, Message: msg})
		return err
	}

	d.draft = host
	d.setOpen(false)
	d.notify.Notify(api.Notification{Level: LevelSuccess, Message: MsgSaved})
	return nil
}

// Cancel discards the draft and closes without persisting.
func (d *Dialog) Cancel() {
	if !d.open {
		return
	}
	d.draft = ""
	d.setOpen(false)
}

func (d *Dialog) setOpen(open bool) {
	if d.open == open {
		return
	}
	d.open = open
	if d.OnOpenChange != nil {
		d.OnOpenChange(open)
	}
}
