package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/studysync/studysync/internal/answer"
	"github.com/studysync/studysync/internal/config"
	"github.com/studysync/studysync/internal/dashboard"
	"github.com/studysync/studysync/internal/doubt"
	"github.com/studysync/studysync/internal/identity"
	"github.com/studysync/studysync/internal/note"
	"github.com/studysync/studysync/internal/sessions"
	"github.com/studysync/studysync/internal/store"
	"github.com/studysync/studysync/internal/tokens"
	"github.com/studysync/studysync/internal/users"
	"github.com/studysync/studysync/pkg/middleware"
)

type testEnv struct {
	router *gin.Engine
	store  store.Store
	broker *identity.Broker
}

func testCfg() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "handler-test-secret"
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.JWT.RefreshTokenTTL = time.Hour
	return cfg
}

// newTestEnv wires the full route surface against the given store, the same
// shape main assembles in production.
func newTestEnv(t *testing.T, st store.Store) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testCfg()

	identitySvc := identity.NewService(st)
	broker := identity.NewBroker()
	usersSvc := users.NewService(st)
	sessionsSvc := sessions.NewService(sessions.NewMemoryRepository())
	verifier := tokens.NewVerifier(cfg)
	authRequired := middleware.AuthMiddleware(verifier)

	r := gin.New()
	authHandler := NewAuthHandler(cfg, identitySvc, usersSvc, sessionsSvc, broker)
	authHandler.Register(r.Group("/"))

	api := r.Group("/api/v1")
	api.GET("/me", authRequired, authHandler.Me)
	doubtSvc := doubt.NewService(st)
	answerSvc := answer.NewService(st)
	NewDoubtsHandler(doubtSvc).Register(api, authRequired)
	NewAnswersHandler(answerSvc).Register(api, authRequired)
	NewNotesHandler(note.NewService(st)).Register(api, authRequired)
	NewDashboardHandler(dashboard.NewService(st)).Register(api, authRequired)
	NewLiveHandler(doubtSvc, answerSvc, broker).Register(api, authRequired)

	return &testEnv{router: r, store: st, broker: broker}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// signup registers a user and returns the access and refresh tokens.
func (e *testEnv) signup(t *testing.T, name, email string) (access, refresh, uid string) {
	t.Helper()
	w := e.do(t, "POST", "/auth/signup", "", gin.H{
		"name": name, "email": email, "password": "s3cretpw",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	access, _ = body["accessToken"].(string)
	refresh, _ = body["refreshToken"].(string)
	user, _ := body["user"].(map[string]any)
	uid, _ = user["uid"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	return access, refresh, uid
}

func TestSignup_CreatesIdentityProfileAndTokens(t *testing.T) {
	env := newTestEnv(t, store.NewMemory())
	access, _, uid := env.signup(t, "Asha", "asha@example.com")
	require.NotEmpty(t, uid)

	w := env.do(t, "GET", "/api/v1/me", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	user := body["user"].(map[string]any)
	require.Equal(t, "Asha", user["name"])
	require.Equal(t, float64(0), user["upvoteScore"])
}

func TestSignup_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t, store.NewMemory())
	env.signup(t, "Asha", "asha@example.com")

	w := env.do(t, "POST", "/auth/signup", "", gin.H{
		"name": "Imposter", "email": "asha@example.com", "password": "s3cretpw",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestSignup_WeakPassword(t *testing.T) {
	env := newTestEnv(t, store.NewMemory())
	w := env.do(t, "POST", "/auth/signup", "", gin.H{
		"name": "Asha", "email": "asha@example.com", "password": "12345",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

// profileFailStore fails writes to the users collection only, the partial
// failure mode of the two-phase sign-up.
type profileFailStore struct {
	store.Store
}

func (s *profileFailStore) Put(ctx context.Context, collection, id string, fields map[string]any) error {
	if collection == users.Collection {
		return &store.WriteError{Collection: collection, Op: "put", Cause: errors.New("backend unavailable")}
	}
	return s.Store.Put(ctx, collection, id, fields)
}

func TestSignup_ProfileWriteFailureIsReportedNotHidden(t *testing.T) {
	mem := store.NewMemory()
	env := newTestEnv(t, &profileFailStore{Store: mem})

	w := env.do(t, "POST", "/auth/signup", "", gin.H{
		"name": "Asha", "email": "asha@example.com", "password": "s3cretpw",
	})
	// the identity exists, so this is a partial success, not an error
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, false, body["profileSaved"])
	require.NotEmpty(t, body["uid"])
	require.NotEmpty(t, body["message"])

	// the identity really was created: the email is now taken
	w = env.do(t, "POST", "/auth/signup", "", gin.H{
		"name": "Asha", "email": "asha@example.com", "password": "s3cretpw",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_KnownAndUnknownCredentials(t *testing.T) {
	env := newTestEnv(t, store.NewMemory())
	env.signup(t, "Asha", "asha@example.com")

	w := env.do(t, "POST", "/auth/login", "", gin.H{"email": "asha@example.com", "password": "s3cretpw"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.NotEmpty(t, body["accessToken"])
	require.NotEmpty(t, body["refreshToken"])

	w = env.do(t, "POST", "/auth/login", "", gin.H{"email": "asha@example.com", "password": "wrongpw1"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, "POST", "/auth/login", "", gin.H{"email": "nobody@example.com", "password": "s3cretpw"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t, store.NewMemory())
	_, refresh, _ := env.signup(t, "Asha", "asha@example.com")

	w := env.do(t, "POST", "/auth/refresh", "", gin.H{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.NotEmpty(t, body["access_token"])

	w = env.do(t, "POST", "/auth/refresh", "", gin.H{"refresh_token": "bogus"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_InvalidatesRefreshAndBroadcasts(t *testing.T) {
	env := newTestEnv(t, store.NewMemory())
	access, refresh, uid := env.signup(t, "Asha", "asha@example.com")

	events, cancel := env.broker.Subscribe()
	defer cancel()

	w := env.do(t, "POST", "/auth/logout", access, gin.H{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case ev := <-events:
		require.Equal(t, identity.Event{UID: uid, SignedIn: false}, ev)
	case <-time.After(time.Second):
		t.Fatal("no sign-out event")
	}

	// the refresh session is gone
	w = env.do(t, "POST", "/auth/refresh", "", gin.H{"refresh_token": refresh})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_RequiresAuth(t *testing.T) {
	env := newTestEnv(t, store.NewMemory())
	w := env.do(t, "GET", "/api/v1/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
