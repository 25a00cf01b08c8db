package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	BlogsCollection      = "blogs"
	UsersCollection      = "users"
	IdentitiesCollection = "identities"
	PushSubsCollection   = "push_subscriptions"
)

// Mongo holds the client and every collection handle the server uses.
type Mongo struct {
	Client     *mongo.Client
	Blogs      *mongo.Collection
	Users      *mongo.Collection
	Identities *mongo.Collection
	PushSubs   *mongo.Collection
}

func ConnectMongo(uri, dbName string) (*Mongo, error) {
	if uri == "" {
		log.Println("MONGODB_URI not set, using default localhost")
		uri = "mongodb://127.0.0.1:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping MongoDB
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Println("Connected to MongoDB successfully")
	return FromDatabase(client, client.Database(dbName)), nil
}

// FromDatabase wires collection handles on an existing database.
func FromDatabase(client *mongo.Client, db *mongo.Database) *Mongo {
	return &Mongo{
		Client:     client,
		Blogs:      db.Collection(BlogsCollection),
		Users:      db.Collection(UsersCollection),
		Identities: db.Collection(IdentitiesCollection),
		PushSubs:   db.Collection(PushSubsCollection),
	}
}

// EnsureIndexes creates the indexes the repositories rely on. It is safe to
// call on every start.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	if _, err := m.Blogs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	}); err != nil {
		return err
	}
	if _, err := m.Identities.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := m.PushSubs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	return nil
}

func (m *Mongo) Disconnect() error {
	if m == nil || m.Client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		return err
	}

	log.Println("Disconnected from MongoDB")
	return nil
}
