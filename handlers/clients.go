package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/insuredocs/docgen/internal/apperr"
	"github.com/insuredocs/docgen/internal/clients"
	"github.com/insuredocs/docgen/pkg/logger"
)

// ClientHandler serves the client lookups used by the generation form.
type ClientHandler struct {
	src clients.Source
}

func NewClientHandler(src clients.Source) *ClientHandler {
	return &ClientHandler{src: src}
}

func (h *ClientHandler) Register(r gin.IRouter) {
	g := r.Group("/api/clients")
	g.GET("/search", h.search)
	g.GET("/:id/details", h.details)
}

// search matches name, email and policy number. Queries shorter than
// clients.MinQueryLength return an empty list.
func (h *ClientHandler) search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if len([]rune(q)) < clients.MinQueryLength {
		c.JSON(http.StatusOK, []clients.Summary{})
		return
	}
	out, err := h.src.Search(c.Request.Context(), q, clients.DefaultSearchLimit)
	if err != nil {
		logger.Errorf("client search failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "client search failed", "details": err.Error()})
		return
	}
	if out == nil {
		out = []clients.Summary{}
	}
	c.JSON(http.StatusOK, out)
}

func (h *ClientHandler) details(c *gin.Context) {
	d, err := clients.LoadDetails(c.Request.Context(), h.src, c.Param("id"))
	if err != nil {
		var missing *apperr.ClientNotFoundError
		if errors.As(err, &missing) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("client details failed: %v", err)
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": "failed to load client details", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}
