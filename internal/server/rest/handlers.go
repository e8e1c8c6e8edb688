package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func detail(msg string) detailResponse {
	return detailResponse{Detail: msg}
}

func newTokenResponse(p *services.TokenPair) tokenResponse {
	return tokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, TokenType: p.TokenType}
}

type handler struct {
	sessions SessionManager
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if tooLarge(c, err) {
			return
		}
		c.JSON(http.StatusBadRequest, detail("Login and password are required"))
		return
	}

	pair, err := h.sessions.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

func (h *handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if tooLarge(c, err) {
			return
		}
		c.JSON(http.StatusBadRequest, detail("Invalid request body"))
		return
	}

	pair, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

func (h *handler) logout(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		unauthorized(c)
		return
	}
	if err := h.sessions.Logout(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail("Successfully logged out"))
}

func (h *handler) me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		unauthorized(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": p.UserID})
}

func (h *handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail writes the response for a service error. Only fixed messages reach
// the client; the error itself is logged by the request logger.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, common.ErrMissingRequiredField):
		c.AbortWithStatusJSON(http.StatusBadRequest, detail("Login and password are required"))
	case errors.Is(err, common.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, detail("Invalid credentials"))
	case errors.Is(err, common.ErrInvalidOrExpiredRefreshToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, detail("Invalid refresh token"))
	case errors.Is(err, common.ErrServiceUnavailable):
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, detail("Service unavailable"))
	case common.IsUnauthorized(err):
		unauthorized(c)
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, detail("Internal server error"))
	}
}

// tooLarge answers 413 when err came from a LimitBody cutoff.
func tooLarge(c *gin.Context, err error) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	c.JSON(http.StatusRequestEntityTooLarge, detail("Request body too large"))
	return true
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", common.BearerScheme)
	c.AbortWithStatusJSON(http.StatusUnauthorized, detail("Unauthorized"))
}
