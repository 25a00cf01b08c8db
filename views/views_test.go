package views

import (
	"context"
	"io"
	"sync"
	"testing"

	"scribe/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type apiStub struct {
	mu    sync.Mutex
	calls []string

	listFn     func(ctx context.Context) ([]*models.Post, error)
	getFn      func(ctx context.Context, id string) (*models.Post, error)
	createFn   func(ctx context.Context, title, content string, image io.Reader, imageName string) (*models.Post, error)
	updateFn   func(ctx context.Context, id, title, content string) (*models.Post, error)
	deleteFn   func(ctx context.Context, id string) error
	likeFn     func(ctx context.Context, id string) error
	commentFn  func(ctx context.Context, id, text, createdAt string) (*models.Comment, error)
	registerFn func(ctx context.Context, email, password string) (*models.Session, error)
	loginFn    func(ctx context.Context, email, password string) (*models.Session, error)
	logoutFn   func(ctx context.Context) error
	resetFn    func(ctx context.Context, email string) error
}

func (s *apiStub) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *apiStub) called() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *apiStub) ListPosts(ctx context.Context) ([]*models.Post, error) {
	s.record("list")
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *apiStub) GetPost(ctx context.Context, id string) (*models.Post, error) {
	s.record("get " + id)
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, models.NewNotFoundError("Post", id)
}

func (s *apiStub) CreatePost(ctx context.Context, title, content string, image io.Reader, imageName string) (*models.Post, error) {
	s.record("create")
	if s.createFn != nil {
		return s.createFn(ctx, title, content, image, imageName)
	}
	return &models.Post{ID: primitive.NewObjectID(), Title: title, Content: content}, nil
}

func (s *apiStub) UpdatePost(ctx context.Context, id, title, content string) (*models.Post, error) {
	s.record("update " + id)
	if s.updateFn != nil {
		return s.updateFn(ctx, id, title, content)
	}
	return &models.Post{Title: title, Content: content}, nil
}

func (s *apiStub) DeletePost(ctx context.Context, id string) error {
	s.record("delete " + id)
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func (s *apiStub) LikePost(ctx context.Context, id string) error {
	s.record("like " + id)
	if s.likeFn != nil {
		return s.likeFn(ctx, id)
	}
	return nil
}

func (s *apiStub) AddComment(ctx context.Context, id, text, createdAt string) (*models.Comment, error) {
	s.record("comment " + id)
	if s.commentFn != nil {
		return s.commentFn(ctx, id, text, createdAt)
	}
	return nil, nil
}

func (s *apiStub) Register(ctx context.Context, email, password string) (*models.Session, error) {
	s.record("register")
	if s.registerFn != nil {
		return s.registerFn(ctx, email, password)
	}
	return &models.Session{UID: "new", Email: email}, nil
}

func (s *apiStub) Login(ctx context.Context, email, password string) (*models.Session, error) {
	s.record("login")
	if s.loginFn != nil {
		return s.loginFn(ctx, email, password)
	}
	return &models.Session{UID: "u1", Email: email}, nil
}

func (s *apiStub) Logout(ctx context.Context) error {
	s.record("logout")
	if s.logoutFn != nil {
		return s.logoutFn(ctx)
	}
	return nil
}

func (s *apiStub) RequestPasswordReset(ctx context.Context, email string) error {
	s.record("reset")
	if s.resetFn != nil {
		return s.resetFn(ctx, email)
	}
	return nil
}

var (
	alice = &models.Session{UID: "u1", Email: "alice@example.com"}
	bob   = &models.Session{UID: "u2", Email: "bob@example.com"}
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.ErrorCode(err), "unexpected error: %v", err)
}

func TestSessionObserver(t *testing.T) {
	o := NewSessionObserver(nil)
	assert.Nil(t, o.Current())

	var seen []*models.Session
	unsubscribe := o.Subscribe(func(s *models.Session) { seen = append(seen, s) })

	o.Set(alice)
	assert.Equal(t, alice, o.Current())
	o.Set(nil)
	unsubscribe()
	unsubscribe()
	o.Set(bob)

	assert.Equal(t, []*models.Session{alice, nil}, seen)
	assert.Equal(t, bob, o.Current())
}
