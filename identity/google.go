package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"scribe/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// NewGoogleConfig returns nil unless both client ID and secret are set.
func NewGoogleConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if clientID == "" || clientSecret == "" {
		log.Println("⚠️  Google OAuth not configured - set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET")
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

func (s *Service) WithGoogle(cfg *oauth2.Config) *Service {
	s.google = cfg
	return s
}

func (s *Service) GoogleEnabled() bool {
	return s.google != nil
}

func (s *Service) GoogleAuthURL(state string) (string, error) {
	if s.google == nil {
		return "", models.NewUnavailableError("Google OAuth not configured")
	}
	return s.google.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// GoogleCallback exchanges an authorization code and signs the Google user
// in, creating or linking the identity by email.
func (s *Service) GoogleCallback(ctx context.Context, code string) (*models.Session, string, error) {
	if s.google == nil {
		return nil, "", models.NewUnavailableError("Google OAuth not configured")
	}
	if code == "" {
		return nil, "", models.NewValidationError("Authorization code missing")
	}

	token, err := s.google.Exchange(ctx, code)
	if err != nil {
		log.Printf("❌ Google OAuth token exchange failed: %v", err)
		return nil, "", models.NewUnauthenticatedError("Failed to exchange authorization code")
	}

	info, err := s.fetchGoogleUser(ctx, token)
	if err != nil {
		log.Printf("❌ Failed to get user info from Google: %v", err)
		return nil, "", models.NewUnauthenticatedError("Failed to get user information")
	}
	if info.Email == "" {
		return nil, "", models.NewUnauthenticatedError("Email not provided by Google")
	}

	ident, err := s.findOrCreateGoogleIdentity(ctx, info)
	if err != nil {
		return nil, "", err
	}

	s.ensureProfile(ctx, ident)
	log.Printf("✅ Google authentication successful for: %s", ident.Email)
	return s.signIn(ident)
}

func (s *Service) fetchGoogleUser(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	resp, err := s.google.Client(ctx, token).Get(s.userInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var info GoogleUserInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *Service) findOrCreateGoogleIdentity(ctx context.Context, info *GoogleUserInfo) (*models.Identity, error) {
	ident, err := s.users.FindIdentityByEmail(ctx, info.Email)
	if err == nil {
		if ident.GoogleID == nil && info.ID != "" {
			if err := s.users.LinkGoogleID(ctx, ident.ID.Hex(), info.ID); err != nil {
				log.Printf("⚠️ Failed to link Google ID for %s: %v", ident.Email, err)
			}
			ident.GoogleID = &info.ID
		}
		return ident, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	log.Printf("📝 Creating new user from Google: %s", info.Email)
	googleID := info.ID
	ident = &models.Identity{
		Email:    info.Email,
		Provider: models.ProviderGoogle,
		GoogleID: &googleID,
	}
	if err := s.users.CreateIdentity(ctx, ident); err != nil {
		// Lost a race with a concurrent sign-in for the same address.
		if errors.Is(err, models.ErrConflict) {
			return s.users.FindIdentityByEmail(ctx, info.Email)
		}
		return nil, err
	}
	return ident, nil
}
