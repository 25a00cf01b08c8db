package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"scribe/middleware"
	"scribe/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type verifierFunc func(ctx context.Context, token string) (*models.Session, error)

func (f verifierFunc) Verify(ctx context.Context, token string) (*models.Session, error) {
	return f(ctx, token)
}

// tokens of the form "valid-<uid>" resolve to <uid>@example.com.
var testVerifier = verifierFunc(func(_ context.Context, token string) (*models.Session, error) {
	if uid, ok := strings.CutPrefix(token, "valid-"); ok {
		return &models.Session{UID: uid, Email: uid + "@example.com"}, nil
	}
	return nil, models.NewUnauthenticatedError("Invalid token")
})

func requireAuth() gin.HandlerFunc  { return middleware.JWTAuthMiddleware(testVerifier) }
func optionalAuth() gin.HandlerFunc { return middleware.OptionalAuthMiddleware(testVerifier) }

func doJSON(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
