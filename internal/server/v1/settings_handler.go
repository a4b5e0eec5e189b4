package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-registry/internal/credentials"
	"github.com/nulzo/chat-registry/internal/server/validator"
	"github.com/nulzo/chat-registry/internal/settings"
	"github.com/nulzo/chat-registry/pkg/api"
)

type SettingsHandler struct {
	settings *settings.Service
}

func NewSettingsHandler(svc *settings.Service) *SettingsHandler {
	return &SettingsHandler{settings: svc}
}

func (h *SettingsHandler) GetOllama(c *gin.Context) {
	c.JSON(http.StatusOK, api.HostSettings{
		Host:        h.settings.Host(c.Request.Context()),
		DefaultHost: credentials.DefaultHost,
		Context:     string(h.settings.Context()),
	})
}

// UpdateOllama runs the submitted host through the settings dialog, so the
// HTTP surface validates and notifies exactly like the terminal form.
func (h *SettingsHandler) UpdateOllama(c *gin.Context) {
	if !h.settings.Writable() {
		_ = c.Error(api.ConflictError(settings.ErrReadOnly.Error()))
		return
	}

	var req api.UpdateHostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	var note api.Notification
	dialog := settings.NewDialog(h.settings, settings.NotifierFunc(func(n api.Notification) {
		note = n
	}))
	ctx := c.Request.Context()
	dialog.Open(ctx)
	dialog.SetDraft(req.Host)

	if err := dialog.Save(ctx); err != nil {
		if errors.Is(err, settings.ErrEmptyHost) {
			_ = c.Error(api.BadRequestError(note.Message, api.WithExtension("notification", note)))
			return
		}
		_ = c.Error(api.InternalError("Failed to save Ollama settings", err))
		return
	}

	c.JSON(http.StatusOK, api.UpdateHostResponse{
		Host:         dialog.Draft(),
		Notification: note,
	})
}
