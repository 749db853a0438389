package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"strategyhub/internal/auth"
	"strategyhub/internal/service"
)

type AuthHandler struct {
	Auth        *service.AuthService
	RequireUser gin.HandlerFunc
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	IsActive bool   `json:"is_active"`
}

func (h *AuthHandler) Register(r *gin.Engine) {
	group := r.Group("/auth")
	group.POST("/register", h.register)
	group.POST("/login", h.login)
	group.POST("/refresh", h.refresh)
	group.GET("/", h.RequireUser, h.me)
}

// @Summary Register a user
// @Tags auth
// @Accept json
// @Produce json
// @Param body body credentialsRequest true "credentials"
// @Success 201 {object} auth.TokenPair
// @Failure 400 {object} map[string]any
// @Router /auth/register [post]
func (h *AuthHandler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	pair, err := h.Auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	Created(c, pair)
}

// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body credentialsRequest true "credentials"
// @Success 200 {object} auth.TokenPair
// @Failure 401 {object} map[string]any
// @Router /auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	pair, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	Ok(c, pair, nil)
}

// @Summary Refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param body body refreshRequest true "refresh token"
// @Success 200 {object} auth.TokenPair
// @Failure 401 {object} map[string]any
// @Router /auth/refresh [post]
func (h *AuthHandler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		Error(c, http.StatusBadRequest, "refresh_token is required", nil)
		return
	}
	pair, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	Ok(c, pair, nil)
}

// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} userResponse
// @Failure 401 {object} map[string]any
// @Router /auth/ [get]
func (h *AuthHandler) me(c *gin.Context) {
	userID, _, ok := auth.CurrentUser(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated", nil)
		return
	}
	user, err := h.Auth.Me(c.Request.Context(), userID)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	Ok(c, userResponse{ID: user.ID, Username: user.Username, IsActive: user.IsActive}, nil)
}
