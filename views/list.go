package views

import (
	"context"
	"strings"
	"sync"

	"scribe/models"
)

// PostListView keeps the full collection in memory and filters it locally.
type PostListView struct {
	api API

	mu    sync.RWMutex
	posts []*models.Post
	query string
}

func NewPostListView(api API) *PostListView {
	return &PostListView{api: api}
}

// Load fetches the whole collection. On error the previous contents stay.
func (v *PostListView) Load(ctx context.Context) error {
	posts, err := v.api.ListPosts(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.posts = posts
	v.mu.Unlock()
	return nil
}

func (v *PostListView) SetQuery(q string) {
	v.mu.Lock()
	v.query = q
	v.mu.Unlock()
}

func (v *PostListView) Query() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.query
}

// Visible is the loaded collection filtered by the current query.
func (v *PostListView) Visible() []*models.Post {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return FilterPosts(v.posts, v.query)
}

// FilterPosts keeps posts whose title or content contains q, ignoring case.
// Order is preserved and an empty query matches everything.
func FilterPosts(posts []*models.Post, q string) []*models.Post {
	needle := strings.ToLower(q)
	out := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if needle == "" ||
			strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Content), needle) {
			out = append(out, p)
		}
	}
	return out
}
