package repository

import (
	"context"
	"errors"
	"time"

	"scribe/models"
	"scribe/observability"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository defines the data operations on the blogs collection.
type PostRepository interface {
	ListAll(ctx context.Context) ([]*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, fields models.NewPost) (string, error)
	UpdateFields(ctx context.Context, id string, patch models.PostPatch) error
	UpdateOwned(ctx context.Context, id, authorID string, patch models.PostPatch) error
	IncrementLikes(ctx context.Context, id string) error
	AppendComment(ctx context.Context, id string, c models.Comment) error
	Delete(ctx context.Context, id string) error
	DeleteOwned(ctx context.Context, id, authorID string) (bool, error)
}

type postRepository struct {
	coll   *mongo.Collection
	logger *observability.RepoLogger
	now    func() time.Time
}

// NewPostRepository creates a PostRepository backed by coll.
func NewPostRepository(coll *mongo.Collection) PostRepository {
	return &postRepository{
		coll:   coll,
		logger: observability.NewRepoLogger(coll.Name()),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (r *postRepository) ListAll(ctx context.Context) ([]*models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.LogError(ctx, err, "list")
		return nil, models.NewStoreUnavailableError(err)
	}
	defer cursor.Close(ctx)

	posts := make([]*models.Post, 0)
	if err := cursor.All(ctx, &posts); err != nil {
		r.logger.LogError(ctx, err, "list")
		return nil, models.NewStoreUnavailableError(err)
	}
	for _, p := range posts {
		normalize(p)
	}
	r.logger.LogRead(ctx, map[string]interface{}{"count": len(posts)})
	return posts, nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.NewNotFoundError("Post", id)
	}

	var post models.Post
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundError("Post", id)
		}
		r.logger.LogError(ctx, err, "get")
		return nil, models.NewStoreUnavailableError(err)
	}
	normalize(&post)
	r.logger.LogRead(ctx, map[string]interface{}{"id": id})
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, fields models.NewPost) (string, error) {
	title, content, err := models.ValidatePostFields(fields.Title, fields.Content)
	if err != nil {
		return "", err
	}

	post := models.Post{
		ID:            primitive.NewObjectID(),
		Title:         title,
		Content:       content,
		ImageURL:      fields.ImageURL,
		ImagePublicID: fields.ImagePublicID,
		AuthorID:      fields.AuthorID,
		AuthorEmail:   fields.AuthorEmail,
		Likes:         0,
		Comments:      []models.Comment{},
		CreatedAt:     r.now(),
	}

	if _, err := r.coll.InsertOne(ctx, post); err != nil {
		r.logger.LogError(ctx, err, "create")
		return "", models.NewStoreUnavailableError(err)
	}
	r.logger.LogCreate(ctx, map[string]interface{}{"id": post.ID.Hex(), "authorId": post.AuthorID})
	return post.ID.Hex(), nil
}

func (r *postRepository) UpdateFields(ctx context.Context, id string, patch models.PostPatch) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.NewNotFoundError("Post", id)
	}
	matched, err := r.update(ctx, bson.M{"_id": oid}, bson.M{"$set": r.patchSet(patch)}, "update")
	if err != nil {
		return err
	}
	if !matched {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// UpdateOwned applies patch only when the document's authorId equals authorID.
// A miss returns ErrNotFound; callers that need to tell "absent" from "not
// yours" do a read first.
func (r *postRepository) UpdateOwned(ctx context.Context, id, authorID string, patch models.PostPatch) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil || authorID == "" {
		return models.NewNotFoundError("Post", id)
	}
	filter := bson.M{"_id": oid, "authorId": authorID}
	matched, err := r.update(ctx, filter, bson.M{"$set": r.patchSet(patch)}, "update_owned")
	if err != nil {
		return err
	}
	if !matched {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) IncrementLikes(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.NewNotFoundError("Post", id)
	}
	matched, err := r.update(ctx, bson.M{"_id": oid}, bson.M{"$inc": bson.M{"likes": 1}}, "like")
	if err != nil {
		return err
	}
	if !matched {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) AppendComment(ctx context.Context, id string, c models.Comment) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.NewNotFoundError("Post", id)
	}
	matched, err := r.update(ctx, bson.M{"_id": oid}, bson.M{"$addToSet": bson.M{"comments": c}}, "comment")
	if err != nil {
		return err
	}
	if !matched {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// Delete is idempotent: a missing or malformed id is not an error.
func (r *postRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.logger.LogError(ctx, err, "delete")
		return models.NewStoreUnavailableError(err)
	}
	r.logger.LogDelete(ctx, map[string]interface{}{"id": id, "deleted": res.DeletedCount})
	return nil
}

func (r *postRepository) DeleteOwned(ctx context.Context, id, authorID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil || authorID == "" {
		return false, nil
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid, "authorId": authorID})
	if err != nil {
		r.logger.LogError(ctx, err, "delete_owned")
		return false, models.NewStoreUnavailableError(err)
	}
	r.logger.LogDelete(ctx, map[string]interface{}{"id": id, "deleted": res.DeletedCount})
	return res.DeletedCount > 0, nil
}

func (r *postRepository) update(ctx context.Context, filter, update bson.M, op string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.LogError(ctx, err, op)
		return false, models.NewStoreUnavailableError(err)
	}
	r.logger.LogUpdate(ctx, map[string]interface{}{"op": op, "matched": res.MatchedCount})
	return res.MatchedCount > 0, nil
}

func (r *postRepository) patchSet(patch models.PostPatch) bson.M {
	at := patch.UpdatedAt
	if at.IsZero() {
		at = r.now()
	}
	set := bson.M{"updatedAt": at.UTC().Truncate(time.Millisecond)}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}
	return set
}

func normalize(p *models.Post) {
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}
}
