package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"scribe/models"
	"scribe/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// blogStub is a stub for BlogService.
type blogStub struct {
	listFn    func(context.Context) ([]*models.Post, error)
	getFn     func(context.Context, string) (*models.Post, error)
	createFn  func(context.Context, *models.Session, services.CreatePostInput) (*models.Post, error)
	updateFn  func(context.Context, *models.Session, string, string, string) (*models.Post, error)
	likeFn    func(context.Context, *models.Session, string) error
	commentFn func(context.Context, *models.Session, string, string, string) (*models.Comment, error)
	deleteFn  func(context.Context, *models.Session, string) error
}

func (s *blogStub) ListPosts(ctx context.Context) ([]*models.Post, error) { return s.listFn(ctx) }
func (s *blogStub) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return s.getFn(ctx, id)
}
func (s *blogStub) CreatePost(ctx context.Context, sess *models.Session, in services.CreatePostInput) (*models.Post, error) {
	return s.createFn(ctx, sess, in)
}
func (s *blogStub) UpdatePost(ctx context.Context, sess *models.Session, id, title, content string) (*models.Post, error) {
	return s.updateFn(ctx, sess, id, title, content)
}
func (s *blogStub) LikePost(ctx context.Context, sess *models.Session, id string) error {
	return s.likeFn(ctx, sess, id)
}
func (s *blogStub) CommentOnPost(ctx context.Context, sess *models.Session, id, text, createdAt string) (*models.Comment, error) {
	return s.commentFn(ctx, sess, id, text, createdAt)
}
func (s *blogStub) DeletePost(ctx context.Context, sess *models.Session, id string) error {
	return s.deleteFn(ctx, sess, id)
}

func newBlogRouter(stub *blogStub) *gin.Engine {
	h := NewBlogHandler(stub)
	r := gin.New()
	r.GET("/api/blogs", h.ListPosts)
	r.GET("/api/blogs/:id", h.GetPost)
	r.POST("/api/blogs", requireAuth(), h.CreatePost)
	r.PUT("/api/blogs/:id", requireAuth(), h.UpdatePost)
	r.DELETE("/api/blogs/:id", requireAuth(), h.DeletePost)
	r.POST("/api/blogs/:id/like", optionalAuth(), h.LikePost)
	r.POST("/api/blogs/:id/comments", optionalAuth(), h.CommentOnPost)
	return r
}

func TestListPosts(t *testing.T) {
	stub := &blogStub{listFn: func(context.Context) ([]*models.Post, error) { return nil, nil }}
	w := doJSON(t, newBlogRouter(stub), http.MethodGet, "/api/blogs", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	stub.listFn = func(context.Context) ([]*models.Post, error) {
		return nil, models.NewStoreUnavailableError(assert.AnError)
	}
	w = doJSON(t, newBlogRouter(stub), http.MethodGet, "/api/blogs", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, models.CodeStoreUnavailable, decodeError(t, w).Code)
}

func TestGetPostNotFound(t *testing.T) {
	stub := &blogStub{getFn: func(_ context.Context, id string) (*models.Post, error) {
		return nil, models.NewNotFoundError("Post", id)
	}}
	w := doJSON(t, newBlogRouter(stub), http.MethodGet, "/api/blogs/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.CodeNotFound, decodeError(t, w).Code)
}

func TestCreatePostJSON(t *testing.T) {
	var gotSession *models.Session
	var gotIn services.CreatePostInput
	stub := &blogStub{createFn: func(_ context.Context, s *models.Session, in services.CreatePostInput) (*models.Post, error) {
		gotSession, gotIn = s, in
		return &models.Post{ID: primitive.NewObjectID(), Title: in.Title, Content: in.Content, AuthorID: s.UID, Comments: []models.Comment{}}, nil
	}}
	r := newBlogRouter(stub)

	w := doJSON(t, r, http.MethodPost, "/api/blogs", "", PostRequest{Title: "T", Content: "C"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, gotSession)

	w = doJSON(t, r, http.MethodPost, "/api/blogs", "valid-u1", PostRequest{Title: "T", Content: "C"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "u1", gotSession.UID)
	assert.Equal(t, "T", gotIn.Title)
	assert.Nil(t, gotIn.Image)

	var post models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
	assert.Equal(t, "u1", post.AuthorID)
}

func TestCreatePostMultipart(t *testing.T) {
	var gotImage []byte
	var gotName string
	stub := &blogStub{createFn: func(_ context.Context, s *models.Session, in services.CreatePostInput) (*models.Post, error) {
		if in.Image != nil {
			gotImage, _ = io.ReadAll(in.Image)
			gotName = in.ImageName
		}
		return &models.Post{Title: in.Title, Content: in.Content, ImageURL: "https://img"}, nil
	}}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Trip"))
	require.NoError(t, mw.WriteField("content", "Photos"))
	fw, err := mw.CreateFormFile("image", "beach.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/blogs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer valid-u1")
	w := httptest.NewRecorder()
	newBlogRouter(stub).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "beach.png", gotName)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), gotImage)
}

func TestCreatePostErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{models.NewValidationError("Title is required"), http.StatusBadRequest},
		{models.NewUploadFailedError(assert.AnError), http.StatusBadGateway},
		{models.NewUnavailableError("Image uploads are not configured"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		stub := &blogStub{createFn: func(context.Context, *models.Session, services.CreatePostInput) (*models.Post, error) {
			return nil, tt.err
		}}
		w := doJSON(t, newBlogRouter(stub), http.MethodPost, "/api/blogs", "valid-u1", PostRequest{})
		assert.Equal(t, tt.status, w.Code)
	}
}

func TestUpdateAndDeleteForbidden(t *testing.T) {
	stub := &blogStub{
		updateFn: func(context.Context, *models.Session, string, string, string) (*models.Post, error) {
			return nil, models.NewUnauthorizedError("You can only edit your own posts")
		},
		deleteFn: func(context.Context, *models.Session, string) error {
			return models.NewUnauthorizedError("You can only delete your own posts")
		},
	}
	r := newBlogRouter(stub)

	w := doJSON(t, r, http.MethodPut, "/api/blogs/p1", "valid-u2", PostRequest{Title: "x", Content: "y"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.CodeUnauthorized, decodeError(t, w).Code)

	w = doJSON(t, r, http.MethodDelete, "/api/blogs/p1", "valid-u2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeletePost(t *testing.T) {
	var gotID string
	stub := &blogStub{deleteFn: func(_ context.Context, s *models.Session, id string) error {
		gotID = id
		return nil
	}}
	w := doJSON(t, newBlogRouter(stub), http.MethodDelete, "/api/blogs/p1", "valid-u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "p1", gotID)
	assert.JSONEq(t, `{"message":"Post deleted","id":"p1"}`, w.Body.String())
}

func TestLikeAndCommentAnonymous(t *testing.T) {
	var likeSession, commentSession *models.Session
	stub := &blogStub{
		likeFn: func(_ context.Context, s *models.Session, _ string) error {
			likeSession = s
			return nil
		},
		commentFn: func(_ context.Context, s *models.Session, _ string, text, createdAt string) (*models.Comment, error) {
			commentSession = s
			return &models.Comment{Text: text, User: models.CommenterLabel(s), CreatedAt: createdAt}, nil
		},
	}
	r := newBlogRouter(stub)

	w := doJSON(t, r, http.MethodPost, "/api/blogs/p1/like", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, likeSession)

	w = doJSON(t, r, http.MethodPost, "/api/blogs/p1/comments", "", CommentRequest{Text: "Nice!", CreatedAt: "1/2/2026, 3:04:05 PM"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, commentSession)
	assert.JSONEq(t, `{"text":"Nice!","user":"Anonymous","createdAt":"1/2/2026, 3:04:05 PM"}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/blogs/p1/comments", "valid-u2", CommentRequest{Text: "Hi"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, commentSession)
	assert.Equal(t, "u2", commentSession.UID)

	w = doJSON(t, r, http.MethodPost, "/api/blogs/p1/like", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
