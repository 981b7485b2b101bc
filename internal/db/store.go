package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/studmisto/opsbot/internal/models"
)

var ErrNotFound = errors.New("db: not found")

type Store struct {
	client   *mongo.Client
	requests *mongo.Collection
	feedback *mongo.Collection
}

func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	d := client.Database(database)
	return &Store{
		client:   client,
		requests: d.Collection("requests"),
		feedback: d.Collection("feedback"),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// EnsureIndexes creates the lookup indexes both collections depend on:
// requests by requester, links by staff message and by requester message.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.requests.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	})
	if err != nil {
		return err
	}
	_, err = s.feedback.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "admin_message_id", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "user_message_id", Value: 1}}},
	})
	return err
}

// InsertRequest stores a new request and returns its hex record key.
func (s *Store) InsertRequest(ctx context.Context, req models.Request) (string, error) {
	res, err := s.requests.InsertOne(ctx, req)
	if err != nil {
		return "", err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("db: unexpected inserted id type")
	}
	return id.Hex(), nil
}

func (s *Store) RequestByID(ctx context.Context, id string) (*models.Request, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var req models.Request
	err = s.requests.FindOne(ctx, bson.M{"_id": oid}).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// RequestsByUser returns the requester's requests, newest first.
func (s *Store) RequestsByUser(ctx context.Context, userID int64) ([]models.Request, error) {
	cur, err := s.requests.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var reqs []models.Request
	if err := cur.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// SetRequestStatus applies one status transition. The single-document
// update is the atomicity unit: concurrent transitions serialize at the
// store and the last commit wins, except that a cancelled request is
// terminal — the filter refuses to move it anywhere.
func (s *Store) SetRequestStatus(ctx context.Context, id string, status models.Status, editedAt time.Time, actor string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.requests.UpdateOne(ctx, bson.M{
		"_id":    oid,
		"status": bson.M{"$ne": models.StatusCancelled},
	}, bson.M{"$set": bson.M{
		"status":         status,
		"edit_timestamp": editedAt,
		"edited_by":      actor,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// QueuePosition counts unresolved same-category requests submitted strictly
// earlier and returns the 1-based position.
func (s *Store) QueuePosition(ctx context.Context, category models.Category, before time.Time) (int, error) {
	n, err := s.requests.CountDocuments(ctx, bson.M{
		"problem_type": category,
		"status":       bson.M{"$in": []models.Status{models.StatusWaiting, models.StatusInProgress}},
		"timestamp":    bson.M{"$lt": before},
	})
	if err != nil {
		return 0, err
	}
	return int(n) + 1, nil
}

// CountInProgressByCategory groups the in-progress requests per category.
func (s *Store) CountInProgressByCategory(ctx context.Context) (map[models.Category]int, error) {
	cur, err := s.requests.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.StatusInProgress}}},
		{{Key: "$group", Value: bson.M{"_id": "$problem_type", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Category models.Category `bson:"_id"`
		Count    int             `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[models.Category]int, len(rows))
	for _, row := range rows {
		if row.Category.Valid() {
			counts[row.Category] = row.Count
		}
	}
	return counts, nil
}

func (s *Store) SaveLink(ctx context.Context, link models.MessageLink) error {
	_, err := s.feedback.InsertOne(ctx, link)
	return err
}

// SaveLinkPair appends both halves of a caption+content exchange in one
// write so either side's reply resolves.
func (s *Store) SaveLinkPair(ctx context.Context, a, b models.MessageLink) error {
	_, err := s.feedback.InsertMany(ctx, []interface{}{a, b})
	return err
}

func (s *Store) LinkByStaffMessage(ctx context.Context, adminMessageID int) (*models.MessageLink, error) {
	var link models.MessageLink
	err := s.feedback.FindOne(ctx, bson.M{"admin_message_id": adminMessageID}).Decode(&link)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *Store) LinkByUserMessage(ctx context.Context, userID int64, userMessageID int) (*models.MessageLink, error) {
	var link models.MessageLink
	err := s.feedback.FindOne(ctx, bson.M{
		"user_id":         userID,
		"user_message_id": userMessageID,
	}).Decode(&link)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}
