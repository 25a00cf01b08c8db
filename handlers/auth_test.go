package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"scribe/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authStub is a stub for AuthService.
type authStub struct {
	registerFn     func(context.Context, string, string) (*models.Session, string, error)
	loginFn        func(context.Context, string, string) (*models.Session, string, error)
	logoutFn       func(context.Context, *models.Session) error
	requestResetFn func(context.Context, string) error
	resetFn        func(context.Context, string, string) error
	profileFn      func(context.Context, *models.Session) (*models.Profile, error)
	googleURLFn    func(string) (string, error)
	googleCbFn     func(context.Context, string) (*models.Session, string, error)
}

func (s *authStub) Register(ctx context.Context, email, password string) (*models.Session, string, error) {
	return s.registerFn(ctx, email, password)
}
func (s *authStub) Login(ctx context.Context, email, password string) (*models.Session, string, error) {
	return s.loginFn(ctx, email, password)
}
func (s *authStub) Logout(ctx context.Context, sess *models.Session) error {
	return s.logoutFn(ctx, sess)
}
func (s *authStub) RequestPasswordReset(ctx context.Context, email string) error {
	return s.requestResetFn(ctx, email)
}
func (s *authStub) ResetPassword(ctx context.Context, token, pw string) error {
	return s.resetFn(ctx, token, pw)
}
func (s *authStub) Profile(ctx context.Context, sess *models.Session) (*models.Profile, error) {
	return s.profileFn(ctx, sess)
}
func (s *authStub) GoogleAuthURL(state string) (string, error) { return s.googleURLFn(state) }
func (s *authStub) GoogleCallback(ctx context.Context, code string) (*models.Session, string, error) {
	return s.googleCbFn(ctx, code)
}

func newAuthRouter(stub *authStub) *gin.Engine {
	h := NewAuthHandler(stub)
	r := gin.New()
	r.POST("/api/register", h.Register)
	r.POST("/api/login", h.Login)
	r.POST("/api/logout", requireAuth(), h.Logout)
	r.POST("/api/password-reset", h.RequestPasswordReset)
	r.POST("/api/password-reset/confirm", h.ConfirmPasswordReset)
	r.GET("/api/me", requireAuth(), h.Me)
	r.GET("/api/google/auth-url", h.GoogleAuthURL)
	r.GET("/api/google/callback", h.GoogleCallback)
	return r
}

func signedIn(_ context.Context, email, _ string) (*models.Session, string, error) {
	return &models.Session{UID: "u1", Email: email}, "jwt-token", nil
}

func TestRegister(t *testing.T) {
	stub := &authStub{registerFn: signedIn}
	r := newAuthRouter(stub)

	w := doJSON(t, r, http.MethodPost, "/api/register", "", SignupRequest{Email: "a@example.com", Password: "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "jwt-token", resp.Token)
	assert.Equal(t, "a@example.com", resp.User.Email)

	for _, req := range []SignupRequest{
		{Email: "not-an-email", Password: "secret1"},
		{Email: "a@example.com", Password: "123"},
		{},
	} {
		w := doJSON(t, r, http.MethodPost, "/api/register", "", req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, models.CodeValidation, decodeError(t, w).Code)
	}

	stub.registerFn = func(context.Context, string, string) (*models.Session, string, error) {
		return nil, "", models.NewConflictError("Email already in use")
	}
	w = doJSON(t, r, http.MethodPost, "/api/register", "", SignupRequest{Email: "a@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email already in use", decodeError(t, w).Error)
}

func TestLogin(t *testing.T) {
	stub := &authStub{loginFn: func(context.Context, string, string) (*models.Session, string, error) {
		return nil, "", models.NewUnauthenticatedError("invalid email or password")
	}}
	w := doJSON(t, newAuthRouter(stub), http.MethodPost, "/api/login", "", LoginRequest{Email: "a@example.com", Password: "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid email or password", decodeError(t, w).Error)

	stub.loginFn = signedIn
	w = doJSON(t, newAuthRouter(stub), http.MethodPost, "/api/login", "", LoginRequest{Email: "a@example.com", Password: "good"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutAndMe(t *testing.T) {
	var loggedOut *models.Session
	stub := &authStub{
		logoutFn: func(_ context.Context, s *models.Session) error {
			loggedOut = s
			return nil
		},
		profileFn: func(_ context.Context, s *models.Session) (*models.Profile, error) {
			if s.UID == "ghost" {
				return nil, models.NewNotFoundError("Profile", s.UID)
			}
			return &models.Profile{ID: s.UID, Email: s.Email, Role: models.DefaultRole}, nil
		},
	}
	r := newAuthRouter(stub)

	w := doJSON(t, r, http.MethodPost, "/api/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/logout", "valid-u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, loggedOut)
	assert.Equal(t, "u1", loggedOut.UID)

	w = doJSON(t, r, http.MethodGet, "/api/me", "valid-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me MeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "u1", me.User.UID)
	assert.Equal(t, "user", me.Profile.Role)

	w = doJSON(t, r, http.MethodGet, "/api/me", "valid-ghost", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"profile":null`)
}

func TestPasswordReset(t *testing.T) {
	var requested, token, password string
	stub := &authStub{
		requestResetFn: func(_ context.Context, email string) error {
			requested = email
			return nil
		},
		resetFn: func(_ context.Context, tok, pw string) error {
			token, password = tok, pw
			if tok == "used" {
				return models.NewValidationError("Invalid or expired reset token")
			}
			return nil
		},
	}
	r := newAuthRouter(stub)

	w := doJSON(t, r, http.MethodPost, "/api/password-reset", "", PasswordResetRequest{Email: "a@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@example.com", requested)

	w = doJSON(t, r, http.MethodPost, "/api/password-reset", "", PasswordResetRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/password-reset/confirm", "", PasswordResetConfirmRequest{Token: "abc", Password: "newsecret"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", token)
	assert.Equal(t, "newsecret", password)

	w = doJSON(t, r, http.MethodPost, "/api/password-reset/confirm", "", PasswordResetConfirmRequest{Token: "used", Password: "newsecret"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGoogleCallbackRequiresStateCookieFromBrowsers(t *testing.T) {
	var exchanged int
	stub := &authStub{
		googleCbFn: func(context.Context, string) (*models.Session, string, error) {
			exchanged++
			return &models.Session{UID: "g1", Email: "g@example.com"}, "jwt-google", nil
		},
	}
	r := newAuthRouter(stub)

	for _, header := range []string{"Origin", "Referer", "Sec-Fetch-Mode", "Sec-Fetch-Site"} {
		t.Run(header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/google/callback?code=good&state=attacker", nil)
			req.Header.Set(header, "https://accounts.google.com/")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, models.CodeUnauthenticated, decodeError(t, w).Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/google/callback?code=good&state=", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: ""})
	req.Header.Set("Referer", "https://accounts.google.com/")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Zero(t, exchanged, "no code exchange without a valid state")
}

func TestGoogleRoutes(t *testing.T) {
	stub := &authStub{
		googleURLFn: func(state string) (string, error) {
			return "https://accounts.google.com/o/oauth2/auth?state=" + url.QueryEscape(state), nil
		},
		googleCbFn: func(_ context.Context, code string) (*models.Session, string, error) {
			if code != "good" {
				return nil, "", models.NewUnauthenticatedError("Failed to exchange authorization code")
			}
			return &models.Session{UID: "g1", Email: "g@example.com"}, "jwt-google", nil
		},
	}
	r := newAuthRouter(stub)

	w := doJSON(t, r, http.MethodGet, "/api/google/auth-url", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	state := cookies[0].Value
	assert.Contains(t, w.Body.String(), state)

	req := httptest.NewRequest(http.MethodGet, "/api/google/callback?code=good&state="+state, nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jwt-google")

	req = httptest.NewRequest(http.MethodGet, "/api/google/callback?code=good&state=forged", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/google/callback?code=bad", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/google/callback?code=good&state=anything", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, "clients without cookies skip the state check")

	stub.googleURLFn = func(string) (string, error) {
		return "", models.NewUnavailableError("Google OAuth not configured")
	}
	w = doJSON(t, r, http.MethodGet, "/api/google/auth-url", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
