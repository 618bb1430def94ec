package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studysync/studysync/internal/config"
	"github.com/studysync/studysync/internal/identity"
	"github.com/studysync/studysync/internal/models"
	"github.com/studysync/studysync/internal/sessions"
	"github.com/studysync/studysync/internal/tokens"
	"github.com/studysync/studysync/internal/users"
	"github.com/studysync/studysync/pkg/logger"
	"github.com/studysync/studysync/pkg/middleware"
)

type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	identities  *identity.Service
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	broker      *identity.Broker
}

func NewAuthHandler(cfg *config.Config, ids *identity.Service, u *users.Service, s *sessions.Service, b *identity.Broker) *AuthHandler {
	return &AuthHandler{cfg: cfg, identities: ids, usersSvc: u, sessionsSvc: s, broker: b}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/signup", h.Signup)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

// Signup creates an identity and then the users/{uid} profile document.
// The profile write happens second; when it fails the identity already
// exists, and the response says so instead of pretending the whole sign-up
// failed.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.identities.Create(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailInUse):
			c.JSON(http.StatusConflict, gin.H{"error": "email is already in use"})
		case errors.Is(err, identity.ErrWeakCredential):
			c.JSON(http.StatusBadRequest, gin.H{"error": "password is too weak"})
		default:
			respondDataError(c, err)
		}
		return
	}

	profile, err := h.usersSvc.CreateProfile(c.Request.Context(), id.UID, req.Name, req.Email)
	if err != nil {
		logger.Errorf("profile write failed after identity creation (uid=%s): %v", id.UID, err)
		c.JSON(http.StatusCreated, gin.H{
			"uid":          id.UID,
			"profileSaved": false,
			"message":      "your account was created but your profile could not be saved; sign in and try again",
		})
		return
	}

	h.broker.Publish(identity.Event{UID: id.UID, SignedIn: true})
	h.respondWithTokens(c, http.StatusCreated, profile)
}

// Login authenticates an email/password pair and opens a refresh session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.identities.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredential) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		respondDataError(c, err)
		return
	}

	profile, err := h.usersSvc.Get(c.Request.Context(), id.UID)
	if err != nil {
		logger.Warnf("profile lookup failed for uid=%s: %v", id.UID, err)
	}
	if profile == nil {
		// identity without a profile: the earlier two-phase sign-up half-failed
		profile = &models.UserProfile{UID: id.UID, Email: id.Email}
	}

	h.broker.Publish(identity.Event{UID: id.UID, SignedIn: true})
	h.respondWithTokens(c, http.StatusOK, profile)
}

func (h *AuthHandler) respondWithTokens(c *gin.Context, status int, profile *models.UserProfile) {
	rft, err := h.sessionsSvc.CreateSession(c.Request.Context(), profile.UID, h.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, profile, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	// camelCase response to match the frontend shapes
	c.JSON(status, gin.H{
		"accessToken":  access,
		"refreshToken": rft,
		"user":         profile,
		"expiresIn":    int(h.cfg.JWT.AccessTokenTTL.Seconds()),
	})
}

// Refresh accepts a refresh token and returns a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.sessionsSvc.ValidateRefresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	profile, err := h.usersSvc.Get(c.Request.Context(), sess.UID)
	if err != nil || profile == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, profile, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": access, "expires_in": int(h.cfg.JWT.AccessTokenTTL.Seconds())})
}

// Logout invalidates the refresh token, blacklists the presented access
// token for its remaining lifetime, and broadcasts the sign-out so live
// feeds for this identity close.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var uid string
	if sess, err := h.sessionsSvc.ValidateRefresh(c.Request.Context(), req.RefreshToken); err == nil && sess != nil {
		uid = sess.UID
	}

	// If the client supplied an Authorization Bearer token, attempt to blacklist it
	auth := c.GetHeader("Authorization")
	if auth != "" {
		var at string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &at); n == 1 {
			if exp, err := parseExpFromJWT(at); err == nil {
				ttl := time.Until(exp)
				if ttl > 0 {
					if err := sessions.BlacklistAccessToken(c.Request.Context(), at, ttl); err != nil {
						c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
						return
					}
				}
			}
		}
	}

	if err := h.sessionsSvc.DeleteRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove session"})
		return
	}
	if uid != "" {
		h.broker.Publish(identity.Event{UID: uid, SignedIn: false})
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	uid := middleware.UID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	profile, err := h.usersSvc.Get(c.Request.Context(), uid)
	if err != nil {
		respondDataError(c, err)
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

// parseExpFromJWT decodes the JWT payload and returns the `exp` claim as time.Time.
// This performs payload-only parsing (no signature verification) and is suitable
// for computing remaining TTLs for blacklisting purposes.
func parseExpFromJWT(tok string) (time.Time, error) {
	parts := strings.Split(tok, ".")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid token")
	}
	payload := parts[1]
	b, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		// try standard base64 (pad) as a fallback
		b, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return time.Time{}, err
		}
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(b, &claims); err != nil {
		return time.Time{}, err
	}
	v, ok := claims["exp"]
	if !ok {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	switch vv := v.(type) {
	case float64:
		return time.Unix(int64(vv), 0), nil
	case json.Number:
		i64, err := vv.Int64()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(i64, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported exp type %T", v)
	}
}
