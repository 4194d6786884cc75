package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/advisorhub/backoffice/internal/models"
)

const collectionUpgradeRequests = "upgrade_requests"

// MongoStore implements Store on a MongoDB database. Transactions require a
// replica set (see InTransaction).
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(database)}
}

func (s *MongoStore) col(c Collection) *mongo.Collection {
	return s.db.Collection(string(c))
}

func readAll[T any](ctx context.Context, col *mongo.Collection) ([]T, error) {
	cur, err := col.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", col.Name(), err)
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", col.Name(), err)
	}
	return out, nil
}

func insertAll[T any](ctx context.Context, col *mongo.Collection, records []T) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, len(records))
	for i := range records {
		docs[i] = records[i]
	}
	if _, err := col.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert %s: %w", col.Name(), err)
	}
	return nil
}

func (s *MongoStore) Dataset(ctx context.Context, include map[Collection]bool) (*models.Dataset, error) {
	in := func(c Collection) bool { return include == nil || include[c] }
	ds := &models.Dataset{}
	var err error
	if in(CollectionAccounts) {
		if ds.Accounts, err = readAll[models.Account](ctx, s.col(CollectionAccounts)); err != nil {
			return nil, err
		}
	}
	if in(CollectionClients) {
		if ds.Clients, err = readAll[models.Client](ctx, s.col(CollectionClients)); err != nil {
			return nil, err
		}
	}
	if in(CollectionEmployees) {
		if ds.Employees, err = readAll[models.Employee](ctx, s.col(CollectionEmployees)); err != nil {
			return nil, err
		}
	}
	if in(CollectionAdmins) {
		if ds.Admins, err = readAll[models.Admin](ctx, s.col(CollectionAdmins)); err != nil {
			return nil, err
		}
	}
	if in(CollectionGuests) {
		if ds.Guests, err = readAll[models.Guest](ctx, s.col(CollectionGuests)); err != nil {
			return nil, err
		}
	}
	if in(CollectionInvestments) {
		if ds.Investments, err = readAll[models.Investment](ctx, s.col(CollectionInvestments)); err != nil {
			return nil, err
		}
	}
	if in(CollectionConfigs) {
		if ds.Configs, err = readAll[models.SystemConfig](ctx, s.col(CollectionConfigs)); err != nil {
			return nil, err
		}
	}
	if in(CollectionAuditLogs) {
		if ds.AuditLogs, err = readAll[models.AuditLog](ctx, s.col(CollectionAuditLogs)); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (s *MongoStore) Replace(ctx context.Context, ds *models.Dataset) error {
	for _, c := range DeletionOrder {
		if _, err := s.col(c).DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("clear %s: %w", c, err)
		}
	}
	for _, c := range InsertionOrder {
		var err error
		switch c {
		case CollectionConfigs:
			err = insertAll(ctx, s.col(c), ds.Configs)
		case CollectionAccounts:
			err = insertAll(ctx, s.col(c), ds.Accounts)
		case CollectionClients:
			err = insertAll(ctx, s.col(c), ds.Clients)
		case CollectionEmployees:
			err = insertAll(ctx, s.col(c), ds.Employees)
		case CollectionAdmins:
			err = insertAll(ctx, s.col(c), ds.Admins)
		case CollectionGuests:
			err = insertAll(ctx, s.col(c), ds.Guests)
		case CollectionInvestments:
			err = insertAll(ctx, s.col(c), ds.Investments)
		case CollectionAuditLogs:
			err = insertAll(ctx, s.col(c), ds.AuditLogs)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *MongoStore) AuditLogsSince(ctx context.Context, since time.Time) ([]models.AuditLog, error) {
	cur, err := s.col(CollectionAuditLogs).Find(ctx,
		bson.M{"timestamp": bson.M{"$gt": since}},
		options.Find().SetSort(bson.M{"timestamp": 1}))
	if err != nil {
		return nil, fmt.Errorf("find audit logs: %w", err)
	}
	var out []models.AuditLog
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode audit logs: %w", err)
	}
	return out, nil
}

func (s *MongoStore) AppendAuditLog(ctx context.Context, entry models.AuditLog) error {
	_, err := s.col(CollectionAuditLogs).InsertOne(ctx, entry)
	return err
}

func (s *MongoStore) Account(ctx context.Context, id string) (*models.Account, error) {
	var a models.Account
	if err := s.col(CollectionAccounts).FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *MongoStore) UpdateAccount(ctx context.Context, a *models.Account) error {
	res, err := s.col(CollectionAccounts).ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) AccountsByRole(ctx context.Context, role models.Role) ([]models.Account, error) {
	cur, err := s.col(CollectionAccounts).Find(ctx, bson.M{"role": role},
		options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var out []models.Account
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) InsertClient(ctx context.Context, c *models.Client) error {
	_, err := s.col(CollectionClients).InsertOne(ctx, c)
	return err
}

func (s *MongoStore) Client(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	if err := s.col(CollectionClients).FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *MongoStore) GuestByAccount(ctx context.Context, accountID string) (*models.Guest, error) {
	var g models.Guest
	if err := s.col(CollectionGuests).FindOne(ctx, bson.M{"accountId": accountID}).Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (s *MongoStore) DeleteGuestByAccount(ctx context.Context, accountID string) error {
	res, err := s.col(CollectionGuests).DeleteOne(ctx, bson.M{"accountId": accountID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Employees(ctx context.Context) ([]models.Employee, error) {
	return readAll[models.Employee](ctx, s.col(CollectionEmployees))
}

func (s *MongoStore) ClientCountByEmployee(ctx context.Context) (map[string]int, error) {
	cur, err := s.col(CollectionClients).Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"employeeId": 1}))
	if err != nil {
		return nil, err
	}
	var rows []struct {
		EmployeeID string `bson:"employeeId"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, r := range rows {
		out[r.EmployeeID]++
	}
	return out, nil
}

func (s *MongoStore) InvestmentsByClient(ctx context.Context, clientID string) ([]models.Investment, error) {
	cur, err := s.col(CollectionInvestments).Find(ctx, bson.M{"clientId": clientID},
		options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var out []models.Investment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) requests() *mongo.Collection {
	return s.db.Collection(collectionUpgradeRequests)
}

func (s *MongoStore) InsertUpgradeRequest(ctx context.Context, r *models.UpgradeRequest) error {
	_, err := s.requests().InsertOne(ctx, r)
	return err
}

func (s *MongoStore) UpgradeRequest(ctx context.Context, id string) (*models.UpgradeRequest, error) {
	var r models.UpgradeRequest
	if err := s.requests().FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *MongoStore) UpdateUpgradeRequest(ctx context.Context, r *models.UpgradeRequest) error {
	res, err := s.requests().ReplaceOne(ctx, bson.M{"_id": r.ID}, r)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) PendingUpgradeRequest(ctx context.Context, accountID string) (*models.UpgradeRequest, error) {
	var r models.UpgradeRequest
	err := s.requests().FindOne(ctx, bson.M{
		"accountId": accountID,
		"status":    models.RequestPending,
	}).Decode(&r)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *MongoStore) LatestRejectedUpgradeRequest(ctx context.Context, accountID string) (*models.UpgradeRequest, error) {
	var r models.UpgradeRequest
	err := s.requests().FindOne(ctx, bson.M{
		"accountId": accountID,
		"status":    models.RequestRejected,
	}, options.FindOne().SetSort(bson.M{"processedAt": -1})).Decode(&r)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// InTransaction runs fn inside a Mongo session transaction so the restore
// clear+reinsert sequence and the approval mutation set commit or roll back
// as a unit. Transactions need a replica set; when the server refuses to
// start one the error is returned to the caller rather than silently
// degrading.
func (s *MongoStore) InTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}
