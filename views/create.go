package views

import (
	"context"
	"io"

	"scribe/models"
)

type PostCreateView struct {
	api     API
	session *SessionObserver
}

func NewPostCreateView(api API, session *SessionObserver) *PostCreateView {
	return &PostCreateView{api: api, session: session}
}

// Submit creates a post and returns its id. The session is read once, at
// submit time. With an image the server uploads it before writing anything.
func (v *PostCreateView) Submit(ctx context.Context, title, content string, image io.Reader, imageName string) (string, error) {
	if v.session.Current() == nil {
		return "", models.NewUnauthenticatedError("You must be logged in to create a post")
	}
	title, content, err := models.ValidatePostFields(title, content)
	if err != nil {
		return "", err
	}

	post, err := v.api.CreatePost(ctx, title, content, image, imageName)
	if err != nil {
		return "", err
	}
	return post.ID.Hex(), nil
}
