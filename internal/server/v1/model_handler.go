package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-registry/internal/gateway"
)

type ModelHandler struct {
	service gateway.Service
}

func NewModelHandler(service gateway.Service) *ModelHandler {
	return &ModelHandler{service: service}
}

// ListModels returns every registered identifier with its details, in
// catalog order, plus the default identifier.
func (h *ModelHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ListModels(c.Request.Context()))
}

func (h *ModelHandler) GetModel(c *gin.Context) {
	entry, err := h.service.GetModel(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, entry)
}
