package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/advisorhub/backoffice/internal/models"
	"github.com/advisorhub/backoffice/pkg/logger"
)

// Notifier dispatches a notification to a recipient account. Delivery is
// best-effort: workflow code logs failures and never propagates them.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// LogNotifier writes notifications to the application log. Used when no
// persistent notifier is configured (dev, tests).
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	logger.Infof("notify %s [%s]: %s", recipient, subject, body)
	return nil
}

// MongoNotifier persists notifications so admins can review recent ones.
// Actual email/SMS delivery is out of scope and handled elsewhere.
type MongoNotifier struct {
	col *mongo.Collection
}

func NewMongoNotifier(db *mongo.Database) *MongoNotifier {
	return &MongoNotifier{col: db.Collection("notifications")}
}

func (n *MongoNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	rec := models.Notification{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	_, err := n.col.InsertOne(ctx, rec)
	return err
}

// Recent returns the newest notifications, capped at limit.
func (n *MongoNotifier) Recent(ctx context.Context, limit int64) ([]models.Notification, error) {
	cur, err := n.col.Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	var out []models.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Recorder collects notifications in memory; test double.
type Recorder struct {
	Sent []models.Notification
	Err  error
}

func (r *Recorder) Notify(ctx context.Context, recipient, subject, body string) error {
	if r.Err != nil {
		return r.Err
	}
	r.Sent = append(r.Sent, models.Notification{
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}
