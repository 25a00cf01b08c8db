package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"scribe/middleware"
	"scribe/models"
	"scribe/services"

	"github.com/gin-gonic/gin"
)

// BlogService is the post mutation protocol as seen by the HTTP layer.
type BlogService interface {
	ListPosts(ctx context.Context) ([]*models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	CreatePost(ctx context.Context, s *models.Session, in services.CreatePostInput) (*models.Post, error)
	UpdatePost(ctx context.Context, s *models.Session, id, title, content string) (*models.Post, error)
	LikePost(ctx context.Context, s *models.Session, id string) error
	CommentOnPost(ctx context.Context, s *models.Session, id, text, createdAt string) (*models.Comment, error)
	DeletePost(ctx context.Context, s *models.Session, id string) error
}

type BlogHandler struct {
	blogs BlogService
}

func NewBlogHandler(blogs BlogService) *BlogHandler {
	return &BlogHandler{blogs: blogs}
}

type PostRequest struct {
	Title   string `json:"title" form:"title"`
	Content string `json:"content" form:"content"`
}

type CommentRequest struct {
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

func (h *BlogHandler) ListPosts(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	posts, err := h.blogs.ListPosts(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	c.JSON(http.StatusOK, posts)
}

func (h *BlogHandler) GetPost(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.blogs.GetPost(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// CreatePost accepts JSON, or multipart with an optional "image" file.
func (h *BlogHandler) CreatePost(c *gin.Context) {
	var in services.CreatePostInput

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		var req PostRequest
		if err := c.ShouldBind(&req); err != nil {
			respondError(c, models.NewValidationError(err.Error()))
			return
		}
		in.Title, in.Content = req.Title, req.Content

		fh, err := c.FormFile("image")
		switch {
		case err == nil:
			f, err := fh.Open()
			if err != nil {
				respondError(c, models.NewValidationError("Could not read image"))
				return
			}
			defer f.Close()
			in.Image, in.ImageName = f, fh.Filename
		case errors.Is(err, http.ErrMissingFile):
		default:
			respondError(c, models.NewValidationError(err.Error()))
			return
		}
	} else {
		var req PostRequest
		if !bindJSON(c, &req) {
			return
		}
		in.Title, in.Content = req.Title, req.Content
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.blogs.CreatePost(ctx, middleware.SessionFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *BlogHandler) UpdatePost(c *gin.Context) {
	var req PostRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.blogs.UpdatePost(ctx, middleware.SessionFrom(c), c.Param("id"), req.Title, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *BlogHandler) DeletePost(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	id := c.Param("id")
	if err := h.blogs.DeletePost(ctx, middleware.SessionFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted", "id": id})
}

func (h *BlogHandler) LikePost(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.blogs.LikePost(ctx, middleware.SessionFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Post liked"})
}

func (h *BlogHandler) CommentOnPost(c *gin.Context) {
	var req CommentRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := h.blogs.CommentOnPost(ctx, middleware.SessionFrom(c), c.Param("id"), req.Text, req.CreatedAt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}
