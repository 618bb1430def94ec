package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studysync/studysync/internal/answer"
	"github.com/studysync/studysync/pkg/middleware"
)

// AnswersHandler exposes the per-doubt answers thread.
type AnswersHandler struct {
	svc *answer.Service
}

func NewAnswersHandler(svc *answer.Service) *AnswersHandler {
	return &AnswersHandler{svc: svc}
}

func (h *AnswersHandler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	rg.GET("/doubts/:id/answers", h.List)
	rg.POST("/doubts/:id/answers", auth, h.Create)
}

func (h *AnswersHandler) List(c *gin.Context) {
	items, err := h.svc.ForDoubt(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDataError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *AnswersHandler) Create(c *gin.Context) {
	var f answer.Form
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// the path is authoritative for the thread the answer lands in
	f.DoubtID = c.Param("id")
	uid := middleware.UID(c)
	id, err := h.svc.Submit(c.Request.Context(), uid, claimName(c), f)
	if err != nil {
		respondDataError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}
