package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studysync/studysync/internal/dashboard"
	"github.com/studysync/studysync/pkg/middleware"
)

// DashboardHandler serves the per-user overview. Each section reports its
// own outcome; one failing query never blanks the others.
type DashboardHandler struct {
	svc *dashboard.Service
}

func NewDashboardHandler(svc *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

func (h *DashboardHandler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	rg.GET("/dashboard", auth, h.Overview)
}

func (h *DashboardHandler) Overview(c *gin.Context) {
	uid := middleware.UID(c)
	ov := h.svc.Overview(c.Request.Context(), uid)
	c.JSON(http.StatusOK, gin.H{
		"doubts":  sectionBody(ov.Doubts.Items, ov.Doubts.Err),
		"answers": sectionBody(ov.Answers.Items, ov.Answers.Err),
		"notes":   sectionBody(ov.Notes.Items, ov.Notes.Err),
	})
}
