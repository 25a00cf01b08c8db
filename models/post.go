package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxTitleLen   = 300
	MaxContentLen = 50000
	MaxCommentLen = 2000

	// AnonymousCommenter labels comments written without a session.
	AnonymousCommenter = "Anonymous"

	// CommentTimeLayout is how clients stamp a comment's createdAt.
	CommentTimeLayout = "1/2/2006, 3:04:05 PM"
)

type Post struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Content       string             `bson:"content" json:"content"`
	ImageURL      string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	ImagePublicID string             `bson:"imagePublicId,omitempty" json:"imagePublicId,omitempty"`
	AuthorID      string             `bson:"authorId" json:"authorId"`
	AuthorEmail   string             `bson:"authorEmail" json:"authorEmail"`
	Likes         int64              `bson:"likes" json:"likes"`
	Comments      []Comment          `bson:"comments" json:"comments"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     *time.Time         `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

type Comment struct {
	Text      string `bson:"text" json:"text"`
	User      string `bson:"user" json:"user"`
	CreatedAt string `bson:"createdAt" json:"createdAt"`
}

// NewPost carries the fields a caller supplies when creating a post. Counters
// and timestamps are filled in by the repository.
type NewPost struct {
	Title         string
	Content       string
	ImageURL      string
	ImagePublicID string
	AuthorID      string
	AuthorEmail   string
}

// PostPatch names the editable fields of a post. Nil fields are left untouched.
// A zero UpdatedAt is stamped by the store.
type PostPatch struct {
	Title     *string
	Content   *string
	UpdatedAt time.Time
}

// Asset is an image stored on the asset host.
type Asset struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// CommentCount is what the list view shows next to the like counter.
func (p *Post) CommentCount() int {
	return len(p.Comments)
}

// Clone returns a deep copy so optimistic local edits never alias a fetched post.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Comments = append([]Comment(nil), p.Comments...)
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		cp.UpdatedAt = &t
	}
	return &cp
}

// ValidatePostFields trims title and content and rejects empty or oversized values.
func ValidatePostFields(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" {
		return "", "", NewValidationError("Title is required")
	}
	if content == "" {
		return "", "", NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return "", "", NewValidationError("Title too long (max 300 characters)")
	}
	if utf8.RuneCountInString(content) > MaxContentLen {
		return "", "", NewValidationError("Content too long (max 50000 characters)")
	}
	return title, content, nil
}

// ValidateCommentText trims a comment body and rejects empty or oversized text.
func ValidateCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", NewValidationError("Comment cannot be empty")
	}
	if utf8.RuneCountInString(text) > MaxCommentLen {
		return "", NewValidationError("Comment too long (max 2000 characters)")
	}
	return text, nil
}

// CommenterLabel is the session email, or AnonymousCommenter without a session.
func CommenterLabel(s *Session) string {
	if s == nil || s.Email == "" {
		return AnonymousCommenter
	}
	return s.Email
}
