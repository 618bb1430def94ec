package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studysync/studysync/internal/note"
	"github.com/studysync/studysync/pkg/middleware"
)

// NotesHandler exposes shared learning resources.
type NotesHandler struct {
	svc *note.Service
}

func NewNotesHandler(svc *note.Service) *NotesHandler {
	return &NotesHandler{svc: svc}
}

func (h *NotesHandler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	rg.GET("/notes", h.List)
	rg.POST("/notes", auth, h.Create)
}

func (h *NotesHandler) List(c *gin.Context) {
	items, err := h.svc.Feed(c.Request.Context())
	if err != nil {
		respondDataError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *NotesHandler) Create(c *gin.Context) {
	var f note.Form
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
