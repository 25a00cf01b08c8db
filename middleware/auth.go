package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"scribe/models"

	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

// TokenVerifier turns a bearer token into a session.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.Session, error)
}

var errMalformedHeader = errors.New("malformed authorization header")

// JWTAuthMiddleware rejects requests without a valid token and stores the
// session in the gin context.
func JWTAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// CORS preflight
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token, err := bearerToken(c)
		if err != nil {
			abort(c, models.NewUnauthenticatedError("Format should be: Bearer <token>"))
			return
		}
		if token == "" {
			abort(c, models.NewUnauthenticatedError("Authentication required"))
			return
		}

		session, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			abort(c, err)
			return
		}

		setSession(c, session)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches a session when a token is present. A bad
// token is still rejected so clients notice stale credentials.
func OptionalAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			abort(c, models.NewUnauthenticatedError("Format should be: Bearer <token>"))
			return
		}
		if token == "" {
			c.Next()
			return
		}

		session, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			abort(c, err)
			return
		}
		setSession(c, session)
		c.Next()
	}
}

// SessionFrom returns the request's session, or nil for anonymous callers.
func SessionFrom(c *gin.Context) *models.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*models.Session)
	return s
}

func setSession(c *gin.Context, s *models.Session) {
	c.Set(sessionKey, s)
	c.Set("userId", s.UID)
}

// bearerToken reads the Authorization header, falling back to ?token=.
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return c.Query("token"), nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", errMalformedHeader
	}
	return strings.TrimSpace(parts[1]), nil
}

func abort(c *gin.Context, err error) {
	status := http.StatusUnauthorized
	code := models.ErrorCode(err)
	switch code {
	case models.CodeUnavailable, models.CodeStoreUnavailable:
		status = http.StatusServiceUnavailable
	case models.CodeRateLimited:
		status = http.StatusTooManyRequests
	case models.CodeUnauthenticated:
	default:
		code = models.CodeUnauthenticated
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: message(err), Code: code})
}

func message(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Invalid token"
}
