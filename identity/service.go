// Package identity is the identity provider: credentials, tokens, password
// resets and Google sign-in.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"scribe/models"
	"scribe/repository"
	"scribe/websocket"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

const (
	MinPasswordLen = 6

	revokedPrefix = "revoked:"
	resetPrefix   = "reset:"
)

type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Publisher receives auth-state changes.
type Publisher interface {
	Publish(ev websocket.Event)
}

type Options struct {
	Secret       string
	TokenTTL     time.Duration
	ResetTTL     time.Duration
	ResetURLBase string
}

type Service struct {
	users     repository.UserRepository
	rdb       *redis.Client
	mailer    Mailer
	publisher Publisher

	secret       []byte
	tokenTTL     time.Duration
	resetTTL     time.Duration
	resetURLBase string
	bcryptCost   int

	google      *oauth2.Config
	userInfoURL string
}

// NewService wires the identity provider. rdb may be nil, in which case
// logout cannot revoke tokens and password resets are unavailable.
func NewService(users repository.UserRepository, rdb *redis.Client, mailer Mailer, publisher Publisher, opts Options) *Service {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}
	if mailer == nil {
		mailer = &LogMailer{}
	}
	return &Service{
		users:        users,
		rdb:          rdb,
		mailer:       mailer,
		publisher:    publisher,
		secret:       []byte(opts.Secret),
		tokenTTL:     opts.TokenTTL,
		resetTTL:     opts.ResetTTL,
		resetURLBase: opts.ResetURLBase,
		bcryptCost:   bcrypt.DefaultCost,
		userInfoURL:  googleUserInfoURL,
	}
}

// Register creates the identity and then its profile document. A failed
// profile write does not fail registration; Login recreates the profile.
func (s *Service) Register(ctx context.Context, email, password string) (*models.Session, string, error) {
	email = repository.NormalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}
	hash := string(hashed)

	ident := &models.Identity{
		Email:        email,
		PasswordHash: &hash,
		Provider:     models.ProviderPassword,
	}
	if err := s.users.CreateIdentity(ctx, ident); err != nil {
		return nil, "", err
	}

	profile := &models.Profile{ID: ident.ID.Hex(), Email: email, Role: models.DefaultRole}
	if err := s.users.CreateProfile(ctx, profile); err != nil {
		log.Printf("⚠️ [Identity] profile write for %s failed, will retry on next login: %v", ident.ID.Hex(), err)
	}

	return s.signIn(ident)
}

func (s *Service) Login(ctx context.Context, email, password string) (*models.Session, string, error) {
	ident, err := s.users.FindIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, "", models.NewUnauthenticatedError("invalid email or password")
		}
		return nil, "", err
	}
	if ident.PasswordHash == nil {
		return nil, "", models.NewUnauthenticatedError("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*ident.PasswordHash), []byte(password)); err != nil {
		return nil, "", models.NewUnauthenticatedError("invalid email or password")
	}

	s.ensureProfile(ctx, ident)
	return s.signIn(ident)
}

// Logout revokes the session's token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, session *models.Session) error {
	if session == nil {
		return models.NewUnauthenticatedError("Authentication required")
	}
	if s.rdb == nil {
		log.Printf("⚠️ [Identity] no token store, token for %s stays valid until expiry", session.UID)
	} else if ttl := time.Until(session.ExpiresAt); session.TokenID != "" && ttl > 0 {
		if err := s.rdb.Set(ctx, revokedPrefix+session.TokenID, session.UID, ttl).Err(); err != nil {
			return models.NewStoreUnavailableError(err)
		}
	}

	s.publish(session.UID, nil)
	return nil
}

// Verify parses an HS256 token and rejects revoked ones.
func (s *Service) Verify(ctx context.Context, tokenString string) (*models.Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, models.NewUnauthenticatedError("Invalid token")
	}

	if s.rdb != nil && claims.ID != "" {
		n, err := s.rdb.Exists(ctx, revokedPrefix+claims.ID).Result()
		if err != nil {
			return nil, models.NewUnavailableError("Session store unavailable")
		}
		if n > 0 {
			return nil, models.NewUnauthenticatedError("Token has been revoked")
		}
	}

	session := &models.Session{UID: claims.UserID, Email: claims.Email, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// RequestPasswordReset mails a one-time reset link. Unknown addresses get the
// same answer as known ones.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = repository.NormalizeEmail(email)
	if email == "" {
		return models.NewValidationError("Email is required")
	}
	if s.rdb == nil {
		return models.NewUnavailableError("Password reset is not available")
	}

	ident, err := s.users.FindIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Printf("[Identity] password reset requested for unknown email")
			return nil
		}
		return err
	}

	token := uuid.NewString()
	if err := s.rdb.Set(ctx, resetPrefix+token, ident.ID.Hex(), s.resetTTL).Err(); err != nil {
		return models.NewStoreUnavailableError(err)
	}

	link := s.resetURLBase + "?" + url.Values{"token": {token}}.Encode()
	body := fmt.Sprintf("Someone asked to reset the password for %s.\n\nOpen this link within %s to choose a new one:\n%s\n\nIf it wasn't you, ignore this email.",
		email, s.resetTTL, link)
	if err := s.mailer.Send(ctx, email, "Reset your password", body); err != nil {
		log.Printf("❌ [Identity] reset mail failed: %v", err)
		return models.NewUnavailableError("Could not send reset email")
	}
	return nil
}

// ResetPassword consumes a reset token exactly once.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return models.NewValidationError("Reset token is required")
	}
	if len(newPassword) < MinPasswordLen {
		return models.NewValidationError(fmt.Sprintf("Password must be at least %d characters", MinPasswordLen))
	}
	if s.rdb == nil {
		return models.NewUnavailableError("Password reset is not available")
	}

	uid, err := s.rdb.GetDel(ctx, resetPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return models.NewValidationError("Invalid or expired reset token")
	}
	if err != nil {
		return models.NewStoreUnavailableError(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.users.UpdatePasswordHash(ctx, uid, string(hashed))
}

// Profile returns the profile document for a session.
func (s *Service) Profile(ctx context.Context, session *models.Session) (*models.Profile, error) {
	if session == nil {
		return nil, models.NewUnauthenticatedError("Authentication required")
	}
	return s.users.GetProfile(ctx, session.UID)
}

func (s *Service) ensureProfile(ctx context.Context, ident *models.Identity) {
	if err := s.users.EnsureProfile(ctx, ident.ID.Hex(), ident.Email); err != nil {
		log.Printf("⚠️ [Identity] could not ensure profile for %s: %v", ident.ID.Hex(), err)
	}
}

func (s *Service) signIn(ident *models.Identity) (*models.Session, string, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := &Claims{
		UserID: ident.ID.Hex(),
		Email:  ident.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}

	session := &models.Session{
		UID:       claims.UserID,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	s.publish(session.UID, session)
	return session, tokenString, nil
}

// publish sends the auth_state event; a nil session means signed out.
func (s *Service) publish(uid string, session *models.Session) {
	if s.publisher == nil {
		return
	}
	var payload interface{}
	if session != nil {
		payload = map[string]string{"uid": session.UID, "email": session.Email}
	}
	s.publisher.Publish(websocket.Event{Type: websocket.EventAuthState, UserID: uid, Payload: payload})
}

func validateCredentials(email, password string) error {
	if email == "" {
		return models.NewValidationError("Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.NewValidationError("Invalid email address")
	}
	if len(password) < MinPasswordLen {
		return models.NewValidationError(fmt.Sprintf("Password must be at least %d characters", MinPasswordLen))
	}
	return nil
}
