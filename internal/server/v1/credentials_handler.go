package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-registry/internal/registry"
	"github.com/nulzo/chat-registry/internal/server/validator"
	"github.com/nulzo/chat-registry/internal/settings"
	"github.com/nulzo/chat-registry/pkg/api"
)

type CredentialsHandler struct {
	settings *settings.Service
	catalog  *registry.Catalog
}

func NewCredentialsHandler(svc *settings.Service) *CredentialsHandler {
	return &CredentialsHandler{settings: svc, catalog: registry.DefaultCatalog()}
}

// ListCredentials reports which credentials resolve, never their values:
// every vendor secret, then any other stored credential.
func (h *CredentialsHandler) ListCredentials(c *gin.Context) {
	ctx := c.Request.Context()

	names, err := h.settings.SecretNames(ctx, h.catalog.Secrets())
	if err != nil {
		_ = c.Error(api.InternalError("Failed to list credentials", err))
		return
	}

	out := make([]api.CredentialStatus, 0, len(names))
	for _, name := range names {
		configured, source := h.settings.SecretStatus(ctx, name)
		status := api.CredentialStatus{Name: name, Configured: configured, Source: source}
		if v, ok := h.catalog.SecretOwner(name); ok {
			status.Vendor = v.Name
		}
		out = append(out, status)
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

type credentialURI struct {
	Name string `uri:"name" binding:"required,secret_name"`
}

func (h *CredentialsHandler) PutCredential(c *gin.Context) {
	var uri credentialURI
	if err := c.ShouldBindUri(&uri); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	var req api.PutCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	name := uri.Name
	if err := h.settings.SetSecret(c.Request.Context(), name, req.Value); err != nil {
		_ = c.Error(credentialError(err))
		return
	}

	configured, source := h.settings.SecretStatus(c.Request.Context(), name)
	c.JSON(http.StatusOK, api.CredentialStatus{Name: name, Configured: configured, Source: source})
}

func (h *CredentialsHandler) DeleteCredential(c *gin.Context) {
	var uri credentialURI
	if err := c.ShouldBindUri(&uri); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	if err := h.settings.DeleteSecret(c.Request.Context(), uri.Name); err != nil {
		_ = c.Error(credentialError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func credentialError(err error) error {
	switch {
	case errors.Is(err, settings.ErrReadOnly):
		return api.ConflictError(err.Error())
	case errors.Is(err, settings.ErrNotSecret), errors.Is(err, settings.ErrEmptyCredential):
		return api.BadRequestError(err.Error())
	default:
		return api.InternalError("Failed to update credential", err)
	}
}
