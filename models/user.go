package models

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultRole = "user"

	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// Identity is the credential record owned by the identity provider.
type Identity struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash *string            `bson:"passwordHash,omitempty" json:"-"`
	Provider     string             `bson:"provider" json:"provider"`
	GoogleID     *string            `bson:"googleId,omitempty" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// Profile is the companion document written to the users collection, keyed by
// the identity uid.
type Profile struct {
	ID        string    `bson:"_id" json:"id"`
	Email     string    `bson:"email" json:"email"`
	Role      string    `bson:"role" json:"role"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

type PushSubscription struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID    string               `bson:"userId" json:"userId"`
	Sub       webpush.Subscription `bson:"sub" json:"sub"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
}
