// Package views holds the interactive state behind each screen of the blog:
// the list, detail, create and session forms. Views talk to the server
// through API and read the signed-in user from a SessionObserver.
package views

import (
	"context"
	"io"

	"scribe/models"
)

// API is the part of client.Client the views use.
type API interface {
	ListPosts(ctx context.Context) ([]*models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	CreatePost(ctx context.Context, title, content string, image io.Reader, imageName string) (*models.Post, error)
	UpdatePost(ctx context.Context, id, title, content string) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
	LikePost(ctx context.Context, id string) error
	AddComment(ctx context.Context, id, text, createdAt string) (*models.Comment, error)

	Register(ctx context.Context, email, password string) (*models.Session, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Logout(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, email string) error
}
