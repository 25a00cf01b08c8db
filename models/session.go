package models

import "time"

// Session is the read-only view of an authenticated identity at a point in
// time. A nil *Session means nobody is signed in.
type Session struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CanMutate reports whether s may edit or delete post. Likes and comments are
// not gated.
func CanMutate(post *Post, s *Session) bool {
	return s != nil && post != nil && s.UID != "" && s.UID == post.AuthorID
}
