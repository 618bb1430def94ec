package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studysync/studysync/internal/doubt"
	"github.com/studysync/studysync/pkg/middleware"
)

// DoubtsHandler exposes the doubts feed and its mutations.
type DoubtsHandler struct {
	svc *doubt.Service
}

func NewDoubtsHandler(svc *doubt.Service) *DoubtsHandler {
	return &DoubtsHandler{svc: svc}
}

func (h *DoubtsHandler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	rg.GET("/doubts", h.List)
	rg.POST("/doubts", auth, h.Create)
	rg.POST("/doubts/:id/resolve", auth, h.Resolve)
}

// List returns a one-shot snapshot of the feed, newest first.
func (h *DoubtsHandler) List(c *gin.Context) {
	items, err := h.svc.Feed(c.Request.Context())
	if err != nil {
		respondDataError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *DoubtsHandler) Create(c *gin.Context) {
	var f doubt.Form
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uid := middleware.UID(c)
	id, err := h.svc.Submit(c.Request.Context(), uid, claimName(c), f)
	if err != nil {
		respondDataError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Resolve marks a doubt resolved. The authoritative author check lives in
// the service; non-authors get a 403 regardless of what the UI showed.
func (h *DoubtsHandler) Resolve(c *gin.Context) {
	uid := middleware.UID(c)
	err := h.svc.Resolve(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		if errors.Is(err, doubt.ErrNotAuthor) {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the author may resolve this doubt"})
			return
		}
		respondDataError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "isResolved": true})
}

// claimName pulls the display name out of the verified token claims.
func claimName(c *gin.Context) string {
	v, ok := c.Get("claims")
	if !ok {
		return ""
	}
	cm, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	name, _ := cm["name"].(string)
	return name
}
