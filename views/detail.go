package views

import (
	"context"
	"errors"
	"sync"
	"time"

	"scribe/models"
)

type DetailState int

const (
	StateLoading DetailState = iota
	StateNotFound
	StateViewing
	StateEditing
	StateDeleted
)

func (s DetailState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateNotFound:
		return "not_found"
	case StateViewing:
		return "viewing"
	case StateEditing:
		return "editing"
	case StateDeleted:
		return "deleted"
	}
	return "unknown"
}

// PostDetailView is the single-post screen. The local post is a cache that
// the next successful fetch replaces.
type PostDetailView struct {
	api     API
	session *SessionObserver
	now     func() time.Time

	mu           sync.Mutex
	state        DetailState
	id           string
	post         *models.Post
	draftTitle   string
	draftContent string
}

func NewPostDetailView(api API, session *SessionObserver) *PostDetailView {
	return &PostDetailView{api: api, session: session, now: time.Now}
}

func (v *PostDetailView) State() DetailState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Post returns a copy of the local post, or nil before a successful load.
func (v *PostDetailView) Post() *models.Post {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.post == nil {
		return nil
	}
	return v.post.Clone()
}

func (v *PostDetailView) Draft() (title, content string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draftTitle, v.draftContent
}

func (v *PostDetailView) Load(ctx context.Context, id string) error {
	v.mu.Lock()
	v.state = StateLoading
	v.id = id
	v.post = nil
	v.mu.Unlock()

	post, err := v.api.GetPost(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			v.state = StateNotFound
		}
		return err
	}
	v.post = post
	v.state = StateViewing
	return nil
}

// CanMutate reports whether the current session may edit or delete.
func (v *PostDetailView) CanMutate() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return models.CanMutate(v.post, v.session.Current())
}

func (v *PostDetailView) BeginEdit() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.requireLoaded(); err != nil {
		return err
	}
	if err := v.guard("edit"); err != nil {
		return err
	}
	v.draftTitle = v.post.Title
	v.draftContent = v.post.Content
	v.state = StateEditing
	return nil
}

func (v *PostDetailView) SetDraft(title, content string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draftTitle = title
	v.draftContent = content
}

// Save writes the draft. On failure the view stays in editing with the
// draft kept and the local post untouched. If the view moved to another
// post or lost this one while the write was in flight, only the write lands.
func (v *PostDetailView) Save(ctx context.Context) error {
	v.mu.Lock()
	if v.state != StateEditing {
		v.mu.Unlock()
		return models.NewValidationError("Not editing")
	}
	title, content, err := models.ValidatePostFields(v.draftTitle, v.draftContent)
	id := v.id
	v.mu.Unlock()
	if err != nil {
		return err
	}

	if _, err := v.api.UpdatePost(ctx, id, title, content); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.post == nil || v.id != id || v.state != StateEditing {
		return nil
	}
	merged := v.post.Clone()
	merged.Title = title
	merged.Content = content
	v.post = merged
	v.state = StateViewing
	return nil
}

func (v *PostDetailView) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateEditing {
		v.state = StateViewing
	}
}

// Like bumps the local count once the server accepted the like.
func (v *PostDetailView) Like(ctx context.Context) error {
	v.mu.Lock()
	if err := v.requireLoaded(); err != nil {
		v.mu.Unlock()
		return err
	}
	id := v.id
	v.mu.Unlock()

	if err := v.api.LikePost(ctx, id); err != nil {
		return err
	}

	v.mu.Lock()
	if v.post != nil && v.id == id {
		v.post.Likes++
	}
	v.mu.Unlock()
	return nil
}

// Comment posts text as the signed-in user and appends it locally.
func (v *PostDetailView) Comment(ctx context.Context, text string) error {
	text, err := models.ValidateCommentText(text)
	if err != nil {
		return err
	}
	session := v.session.Current()
	if session == nil {
		return models.NewUnauthenticatedError("You must be logged in to comment")
	}

	v.mu.Lock()
	if err := v.requireLoaded(); err != nil {
		v.mu.Unlock()
		return err
	}
	id := v.id
	v.mu.Unlock()

	createdAt := v.now().Format(models.CommentTimeLayout)
	saved, err := v.api.AddComment(ctx, id, text, createdAt)
	if err != nil {
		return err
	}
	comment := models.Comment{Text: text, User: models.CommenterLabel(session), CreatedAt: createdAt}
	if saved != nil {
		comment = *saved
	}

	v.mu.Lock()
	if v.post != nil && v.id == id {
		v.post.Comments = append(v.post.Comments, comment)
	}
	v.mu.Unlock()
	return nil
}

// Delete removes the post after confirm agrees. A nil confirm or a "no"
// leaves everything as is and returns ErrDeleteCancelled.
func (v *PostDetailView) Delete(ctx context.Context, confirm func() bool) error {
	v.mu.Lock()
	if err := v.requireLoaded(); err != nil {
		v.mu.Unlock()
		return err
	}
	if err := v.guard("delete"); err != nil {
		v.mu.Unlock()
		return err
	}
	id := v.id
	v.mu.Unlock()

	if confirm == nil || !confirm() {
		return ErrDeleteCancelled
	}
	if err := v.api.DeletePost(ctx, id); err != nil {
		return err
	}

	v.mu.Lock()
	v.state = StateDeleted
	v.mu.Unlock()
	return nil
}

// Reconcile refetches the post and replaces the local copy. An edit in
// progress keeps its draft.
func (v *PostDetailView) Reconcile(ctx context.Context) error {
	v.mu.Lock()
	id := v.id
	v.mu.Unlock()
	if id == "" {
		return models.NewValidationError("Nothing loaded")
	}

	post, err := v.api.GetPost(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.id != id || v.state == StateDeleted {
		return nil
	}
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			v.post = nil
			v.state = StateNotFound
		}
		return err
	}
	v.post = post
	if v.state != StateEditing {
		v.state = StateViewing
	}
	return nil
}

// ErrDeleteCancelled is returned when the user declines the confirmation.
var ErrDeleteCancelled = errors.New("delete cancelled")

func (v *PostDetailView) requireLoaded() error {
	if v.post == nil || (v.state != StateViewing && v.state != StateEditing) {
		return models.NewValidationError("Post is not loaded")
	}
	return nil
}

func (v *PostDetailView) guard(action string) error {
	s := v.session.Current()
	if s == nil {
		return models.NewUnauthenticatedError("You must be logged in to " + action + " a post")
	}
	if !models.CanMutate(v.post, s) {
		return models.NewUnauthorizedError("You can only " + action + " your own posts")
	}
	return nil
}
