package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/studysync/studysync/internal/answer"
	"github.com/studysync/studysync/internal/doubt"
	"github.com/studysync/studysync/internal/identity"
	"github.com/studysync/studysync/internal/live"
	"github.com/studysync/studysync/pkg/logger"
	"github.com/studysync/studysync/pkg/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// same open policy as the HTTP CORS middleware
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveHandler streams full result-set snapshots over a websocket: one frame
// per delivered snapshot, never diffs. A sign-out for the connected identity
// closes the socket.
type LiveHandler struct {
	doubts  *doubt.Service
	answers *answer.Service
	broker  *identity.Broker
}

func NewLiveHandler(d *doubt.Service, a *answer.Service, b *identity.Broker) *LiveHandler {
	return &LiveHandler{doubts: d, answers: a, broker: b}
}

func (h *LiveHandler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	// browsers cannot set headers on websocket dials, so accept ?token= too
	rg.GET("/live/doubts", tokenFromQuery(), auth, h.Doubts)
	rg.GET("/live/doubts/:id/answers", tokenFromQuery(), auth, h.Answers)
}

// tokenFromQuery lifts a ?token= query parameter into the Authorization
// header so the regular auth middleware applies.
func tokenFromQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			if tok := c.Query("token"); tok != "" {
				c.Request.Header.Set("Authorization", "Bearer "+tok)
			}
		}
		c.Next()
	}
}

func (h *LiveHandler) Doubts(c *gin.Context) {
	sub, err := h.doubts.SubscribeFeed(c.Request.Context())
	if err != nil {
		respondDataError(c, err)
		return
	}
	streamSnapshots(c, h.broker, sub)
}

func (h *LiveHandler) Answers(c *gin.Context) {
	sub, err := h.answers.SubscribeForDoubt(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDataError(c, err)
		return
	}
	streamSnapshots(c, h.broker, sub)
}

// streamSnapshots owns the subscription for the life of the socket and
// releases it on every exit path; an unreleased subscription leaks a
// standing channel.
func streamSnapshots[T any](c *gin.Context, broker *identity.Broker, sub *live.Subscription[T]) {
	uid := middleware.UID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Close()
		logger.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	defer sub.Close()

	events, cancelEvents := broker.Subscribe()
	defer cancelEvents()

	// reader: the client never sends data frames, but reading is what
	// surfaces the close handshake
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case ev := <-events:
			if ev.UID == uid && !ev.SignedIn {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "signed out"))
				return
			}
		case snap := <-sub.Updates():
			if snap.Err != nil {
				_, body := dataErrorBody(snap.Err)
				_ = conn.WriteJSON(gin.H{"ok": false, "error": body})
				return
			}
			if err := conn.WriteJSON(gin.H{"ok": true, "items": snap.Items}); err != nil {
				return
			}
		}
	}
}
