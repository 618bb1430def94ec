package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studysync/studysync/internal/forms"
	"github.com/studysync/studysync/internal/store"
)

// respondDataError maps the error taxonomy onto HTTP responses.
// Validation failures are field-scoped; everything else is a single
// top-level error so the client keeps the form populated and resubmits.
func respondDataError(c *gin.Context, err error) {
	if ve, ok := forms.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"errors": ve.Fields})
		return
	}
	status, body := dataErrorBody(err)
	c.JSON(status, body)
}

func dataErrorBody(err error) (int, gin.H) {
	switch store.Kind(err) {
	case "not_configured":
		return http.StatusServiceUnavailable, gin.H{"error": "backend is not configured", "kind": "not_configured"}
	case "precondition":
		var pe *store.PreconditionError
		errors.As(err, &pe)
		return http.StatusPreconditionFailed, gin.H{
			"error":    "this query needs a server-side index that does not exist yet",
			"kind":     "precondition",
			"guidance": pe.Guidance(),
		}
	case "not_found":
		return http.StatusNotFound, gin.H{"error": "not found", "kind": "not_found"}
	case "write":
		return http.StatusBadGateway, gin.H{"error": "the write could not be completed, please try again", "kind": "write"}
	default:
		return http.StatusInternalServerError, gin.H{"error": "the data could not be loaded", "kind": "query"}
	}
}

// sectionBody renders one dashboard/feed section outcome for JSON.
func sectionBody(items any, err error) gin.H {
	if err != nil {
		_, body := dataErrorBody(err)
		return gin.H{"ok": false, "error": body}
	}
	return gin.H{"ok": true, "items": items}
}
