package handlers

import (
	"context"
	"errors"
	"net/http"

	"scribe/middleware"
	"scribe/models"

	"github.com/gin-gonic/gin"
)

// AuthService is the identity provider as seen by the HTTP layer.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.Session, string, error)
	Login(ctx context.Context, email, password string) (*models.Session, string, error)
	Logout(ctx context.Context, session *models.Session) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Profile(ctx context.Context, session *models.Session) (*models.Profile, error)
	GoogleAuthURL(state string) (string, error)
	GoogleCallback(ctx context.Context, code string) (*models.Session, string, error)
}

type AuthHandler struct {
	auth AuthService
}

func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// AuthResponse is returned by every sign-in route.
type AuthResponse struct {
	Token string          `json:"token"`
	User  *models.Session `json:"user"`
}

type MeResponse struct {
	User    *models.Session `json:"user"`
	Profile *models.Profile `json:"profile"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	session, token, err := h.auth.Register(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, AuthResponse{Token: token, User: session})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	session, token, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Token: token, User: session})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.auth.Logout(ctx, middleware.SessionFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out"})
}

func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.auth.RequestPasswordReset(ctx, req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "If that address has an account, a reset link is on its way"})
}

func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.auth.ResetPassword(ctx, req.Token, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Password updated"})
}

// Me returns the session and its profile. A missing profile is reported as null.
func (h *AuthHandler) Me(c *gin.Context) {
	session := middleware.SessionFrom(c)

	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := h.auth.Profile(ctx, session)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MeResponse{User: session, Profile: profile})
}
