package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"scribe/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const oauthStateCookie = "oauth_state"

// GoogleAuthURL returns the consent URL and remembers the state in a cookie.
func (h *AuthHandler) GoogleAuthURL(c *gin.Context) {
	state := uuid.NewString()
	url, err := h.auth.GoogleAuthURL(state)
	if err != nil {
		respondError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, int((10 * time.Minute).Seconds()), "/api/google", "", false, true)
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	fmt.Printf("[%s] 🔐 GET /api/google/callback received\n", time.Now().Format("15:04:05"))

	if err := checkOAuthState(c); err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	session, token, err := h.auth.GoogleCallback(ctx, c.Query("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/api/google", "", false, true)
	c.JSON(http.StatusOK, AuthResponse{Token: token, User: session})
}

// checkOAuthState compares state with the cookie set by GoogleAuthURL.
// Browsers always carry the cookie back, so a browser callback without it is
// rejected. Clients that never hold cookies (the CLI, the SDK) skip the check.
func checkOAuthState(c *gin.Context) error {
	cookie, err := c.Cookie(oauthStateCookie)
	if err != nil {
		if fromBrowser(c.Request) {
			log.Printf("❌ OAuth callback from a browser without state cookie")
			return models.NewUnauthenticatedError("Invalid OAuth state")
		}
		return nil
	}
	if cookie == "" || cookie != c.Query("state") {
		log.Printf("❌ OAuth state mismatch")
		return models.NewUnauthenticatedError("Invalid OAuth state")
	}
	return nil
}

func fromBrowser(r *http.Request) bool {
	for _, h := range []string{"Origin", "Referer", "Sec-Fetch-Mode", "Sec-Fetch-Site"} {
		if r.Header.Get(h) != "" {
			return true
		}
	}
	return false
}
