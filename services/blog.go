// Package services holds the blog mutation protocol: ownership checks, image
// upload ordering and the events each mutation emits.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"scribe/assets"
	"scribe/models"
	"scribe/observability"
	"scribe/repository"
	"scribe/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Publisher fans post events out to connected clients.
type Publisher interface {
	Publish(ev websocket.Event)
}

// Notifier pushes a notification to one user.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body, url string) error
}

type CreatePostInput struct {
	Title     string
	Content   string
	Image     io.Reader
	ImageName string
}

type BlogService struct {
	posts     repository.PostRepository
	uploader  assets.Uploader
	publisher Publisher
	notifier  Notifier

	background time.Duration
	wg         sync.WaitGroup
	now        func() time.Time
}

// NewBlogService wires the service. uploader, publisher and notifier may be nil.
func NewBlogService(posts repository.PostRepository, uploader assets.Uploader, publisher Publisher, notifier Notifier) *BlogService {
	return &BlogService{
		posts:      posts,
		uploader:   uploader,
		publisher:  publisher,
		notifier:   notifier,
		background: 10 * time.Second,
		now:        time.Now,
	}
}

// Wait blocks until pending notifications have been handed off.
func (b *BlogService) Wait() {
	b.wg.Wait()
}

func (b *BlogService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	return b.posts.ListAll(ctx)
}

func (b *BlogService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return b.posts.GetByID(ctx, id)
}

// CreatePost validates, uploads the image if any, then writes the document.
// An uploaded image is destroyed again when the write fails.
func (b *BlogService) CreatePost(ctx context.Context, s *models.Session, in CreatePostInput) (*models.Post, error) {
	if s == nil {
		return nil, models.NewUnauthenticatedError("You must be logged in to create a post")
	}
	title, content, err := models.ValidatePostFields(in.Title, in.Content)
	if err != nil {
		return nil, err
	}

	var asset models.Asset
	if in.Image != nil {
		if b.uploader == nil {
			return nil, models.NewUnavailableError("Image uploads are not configured")
		}
		asset, err = b.uploader.Upload(ctx, in.Image, in.ImageName)
		if err != nil {
			log.Printf("❌ [Blog] image upload failed for %s: %v", s.UID, err)
			return nil, err
		}
	}

	id, err := b.posts.Create(ctx, models.NewPost{
		Title:         title,
		Content:       content,
		ImageURL:      asset.URL,
		ImagePublicID: asset.PublicID,
		AuthorID:      s.UID,
		AuthorEmail:   s.Email,
	})
	if err != nil {
		if asset.PublicID != "" {
			b.destroyAsset(asset.PublicID)
		}
		return nil, err
	}

	post, err := b.posts.GetByID(ctx, id)
	if err != nil {
		log.Printf("⚠️ [Blog] created post %s but could not read it back: %v", id, err)
		post = b.localPost(id, title, content, asset, s)
	}

	observability.PostMutations.WithLabelValues("create").Inc()
	log.Printf("✅ [Blog] post %s created by %s", id, s.UID)
	b.publish(websocket.EventPostCreated, post)
	return post, nil
}

// UpdatePost overwrites title and content of a post the session owns.
func (b *BlogService) UpdatePost(ctx context.Context, s *models.Session, id, title, content string) (*models.Post, error) {
	if s == nil {
		return nil, models.NewUnauthenticatedError("You must be logged in to edit a post")
	}
	title, content, err := models.ValidatePostFields(title, content)
	if err != nil {
		return nil, err
	}

	post, err := b.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanMutate(post, s) {
		return nil, models.NewUnauthorizedError("You can only edit your own posts")
	}

	updatedAt := b.now().UTC().Truncate(time.Millisecond)
	patch := models.PostPatch{Title: &title, Content: &content, UpdatedAt: updatedAt}
	if err := b.posts.UpdateOwned(ctx, id, s.UID, patch); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, b.ownershipLost(ctx, id, "edit")
		}
		return nil, err
	}

	merged := post.Clone()
	merged.Title = title
	merged.Content = content
	merged.UpdatedAt = &updatedAt

	observability.PostMutations.WithLabelValues("update").Inc()
	b.publish(websocket.EventPostUpdated, merged)
	return merged, nil
}

// LikePost adds one like. Any caller may like, s is only used to skip
// notifying authors about their own likes.
func (b *BlogService) LikePost(ctx context.Context, s *models.Session, id string) error {
	if err := b.posts.IncrementLikes(ctx, id); err != nil {
		return err
	}

	observability.PostMutations.WithLabelValues("like").Inc()
	b.publish(websocket.EventPostLiked, map[string]interface{}{"id": id, "delta": 1})
	b.notifyAuthor(id, s, "New like ❤️", func(p *models.Post) string {
		return fmt.Sprintf("%s liked \"%s\"", actorLabel(s), p.Title)
	})
	return nil
}

// CommentOnPost appends a comment labelled with the session email, or
// Anonymous without a session. An empty createdAt is stamped with the server clock.
func (b *BlogService) CommentOnPost(ctx context.Context, s *models.Session, id, text, createdAt string) (*models.Comment, error) {
	text, err := models.ValidateCommentText(text)
	if err != nil {
		return nil, err
	}
	if createdAt == "" {
		createdAt = b.now().Format(models.CommentTimeLayout)
	}

	comment := models.Comment{Text: text, User: models.CommenterLabel(s), CreatedAt: createdAt}
	if err := b.posts.AppendComment(ctx, id, comment); err != nil {
		return nil, err
	}

	observability.PostMutations.WithLabelValues("comment").Inc()
	b.publish(websocket.EventPostCommented, map[string]interface{}{"id": id, "comment": comment})
	b.notifyAuthor(id, s, "New comment 💬", func(p *models.Post) string {
		return fmt.Sprintf("%s: %s", comment.User, comment.Text)
	})
	return &comment, nil
}

// DeletePost removes a post the session owns together with its image.
func (b *BlogService) DeletePost(ctx context.Context, s *models.Session, id string) error {
	if s == nil {
		return models.NewUnauthenticatedError("You must be logged in to delete a post")
	}

	post, err := b.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !models.CanMutate(post, s) {
		return models.NewUnauthorizedError("You can only delete your own posts")
	}

	deleted, err := b.posts.DeleteOwned(ctx, id, s.UID)
	if err != nil {
		return err
	}
	if !deleted {
		return b.ownershipLost(ctx, id, "delete")
	}

	if post.ImagePublicID != "" {
		b.destroyAsset(post.ImagePublicID)
	}

	observability.PostMutations.WithLabelValues("delete").Inc()
	log.Printf("🗑️ [Blog] post %s deleted by %s", id, s.UID)
	b.publish(websocket.EventPostDeleted, map[string]string{"id": id})
	return nil
}

// ownershipLost explains a guarded write that matched nothing after the
// guard passed locally.
func (b *BlogService) ownershipLost(ctx context.Context, id, action string) error {
	if _, err := b.posts.GetByID(ctx, id); err != nil {
		return err
	}
	return models.NewUnauthorizedError(fmt.Sprintf("You can only %s your own posts", action))
}

func (b *BlogService) destroyAsset(publicID string) {
	if b.uploader == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.background)
	defer cancel()
	if err := b.uploader.Destroy(ctx, publicID); err != nil {
		log.Printf("⚠️ [Blog] could not destroy asset %s: %v", publicID, err)
	}
}

func (b *BlogService) publish(eventType string, payload interface{}) {
	if b.publisher == nil {
		return
	}
	b.publisher.Publish(websocket.Event{Type: eventType, Payload: payload})
}

// notifyAuthor looks the post up and pushes to its author in the background,
// unless the actor is the author.
func (b *BlogService) notifyAuthor(id string, actor *models.Session, title string, body func(*models.Post) string) {
	if b.notifier == nil {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.background)
		defer cancel()

		post, err := b.posts.GetByID(ctx, id)
		if err != nil {
			log.Printf("⚠️ [Push] could not load post %s: %v", id, err)
			return
		}
		if actor != nil && actor.UID == post.AuthorID {
			return
		}
		if err := b.notifier.Notify(ctx, post.AuthorID, title, body(post), "/blog/"+id); err != nil {
			log.Printf("⚠️ [Push] notify %s failed: %v", post.AuthorID, err)
		}
	}()
}

func (b *BlogService) localPost(id, title, content string, asset models.Asset, s *models.Session) *models.Post {
	post := &models.Post{
		Title:         title,
		Content:       content,
		ImageURL:      asset.URL,
		ImagePublicID: asset.PublicID,
		AuthorID:      s.UID,
		AuthorEmail:   s.Email,
		Comments:      []models.Comment{},
		CreatedAt:     b.now().UTC(),
	}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		post.ID = oid
	}
	return post
}

func actorLabel(s *models.Session) string {
	if s == nil || s.Email == "" {
		return "Someone"
	}
	return s.Email
}
