package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Vanaiyalini/TaskTrail/internal/models"
)

const (
	usersCollection = "users"
	tasksCollection = "tasks"
)

type userDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *userDocument) toModel() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	User        primitive.ObjectID `bson:"user"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	Urgency     string             `bson:"urgency"`
	Completed   bool               `bson:"completed"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *taskDocument) toModel() *models.Task {
	return &models.Task{
		ID:          d.ID.Hex(),
		UserID:      d.User.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Urgency:     models.Urgency(d.Urgency),
		Completed:   d.Completed,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

// EnsureMongoIndexes はusers.emailのユニークインデックスとtasksの一覧用インデックスを作成します。
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("could not create users.email index: %w", err)
	}
	_, err = db.Collection(tasksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("could not create tasks.user index: %w", err)
	}
	return nil
}

// MongoUserRepository はMongoDBのusersコレクションを扱います。
type MongoUserRepository struct {
	coll *mongo.Collection
	log  *slog.Logger
}

// NewMongoUserRepository は新しいMongoUserRepositoryを作成します。
func NewMongoUserRepository(db *mongo.Database, log *slog.Logger) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(usersCollection), log: log}
}

func (r *MongoUserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := userDocument{
		ID:        primitive.NewObjectID(),
		Name:      u.Name,
		Email:     strings.ToLower(strings.TrimSpace(u.Email)),
		Password:  u.PasswordHash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		r.log.Error("failed to insert user", "error", err)
		return nil, fmt.Errorf("could not insert user: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		r.log.Error("failed to query user", "error", err)
		return nil, fmt.Errorf("could not query user: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *MongoUserRepository) Update(ctx context.Context, u *models.User) (*models.User, error) {
	oid, err := parseObjectID(u.ID)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{
		"name":      u.Name,
		"password":  u.PasswordHash,
		"updatedAt": time.Now().UTC().Truncate(time.Millisecond),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		r.log.Error("failed to update user", "error", err)
		return nil, fmt.Errorf("could not update user: %w", err)
	}
	return doc.toModel(), nil
}

// MongoTaskRepository はMongoDBのtasksコレクションを扱います。
type MongoTaskRepository struct {
	coll *mongo.Collection
	log  *slog.Logger
}

// NewMongoTaskRepository は新しいMongoTaskRepositoryを作成します。
func NewMongoTaskRepository(db *mongo.Database, log *slog.Logger) *MongoTaskRepository {
	return &MongoTaskRepository{coll: db.Collection(tasksCollection), log: log}
}

func (r *MongoTaskRepository) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	owner, err := parseObjectID(t.UserID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := taskDocument{
		ID:          primitive.NewObjectID(),
		User:        owner,
		Title:       t.Title,
		Description: t.Description,
		Urgency:     string(t.Urgency),
		Completed:   t.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		r.log.Error("failed to insert task", "error", err)
		return nil, fmt.Errorf("could not insert task: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc taskDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		r.log.Error("failed to query task by ID", "error", err)
		return nil, fmt.Errorf("could not query task: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoTaskRepository) FindByOwner(ctx context.Context, userID string, filter models.TaskFilter) ([]*models.Task, error) {
	owner, err := parseObjectID(userID)
	if err != nil {
		return nil, err
	}
	query := bson.M{"user": owner}
	if filter.Urgency != nil {
		query["urgency"] = string(*filter.Urgency)
	}
	if filter.Completed != nil {
		query["completed"] = *filter.Completed
	}
	// ObjectIDは生成時刻順なので同時刻の並びも安定します。
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		r.log.Error("failed to query tasks", "error", err)
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := make([]*models.Task, 0)
	for cursor.Next(ctx) {
		var doc taskDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("could not decode task: %w", err)
		}
		tasks = append(tasks, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

func (r *MongoTaskRepository) Update(ctx context.Context, t *models.Task) (*models.Task, error) {
	oid, err := parseObjectID(t.ID)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{
		"title":       t.Title,
		"description": t.Description,
		"urgency":     string(t.Urgency),
		"completed":   t.Completed,
		"updatedAt":   time.Now().UTC().Truncate(time.Millisecond),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDocument
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		r.log.Error("failed to update task", "error", err)
		return nil, fmt.Errorf("could not update task: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.log.Error("failed to delete task", "error", err)
		return fmt.Errorf("could not delete task: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}
