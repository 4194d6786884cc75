package store

import (
	"context"
	"errors"
	"time"

	"github.com/advisorhub/backoffice/internal/models"
)

var ErrNotFound = errors.New("not found")

// Collection names the eight entity collections moved by the snapshot engine.
type Collection string

const (
	CollectionAccounts    Collection = "accounts"
	CollectionClients     Collection = "clients"
	CollectionEmployees   Collection = "employees"
	CollectionAdmins      Collection = "admins"
	CollectionGuests      Collection = "guests"
	CollectionInvestments Collection = "investments"
	CollectionConfigs     Collection = "configs"
	CollectionAuditLogs   Collection = "audit_logs"
)

// DeletionOrder clears children before parents so foreign-key style
// references never dangle mid-restore. InsertionOrder is its reverse.
var DeletionOrder = []Collection{
	CollectionAuditLogs,
	CollectionInvestments,
	CollectionGuests,
	CollectionAdmins,
	CollectionEmployees,
	CollectionClients,
	CollectionAccounts,
	CollectionConfigs,
}

// InsertionOrder restores parents before children.
var InsertionOrder = []Collection{
	CollectionConfigs,
	CollectionAccounts,
	CollectionClients,
	CollectionEmployees,
	CollectionAdmins,
	CollectionGuests,
	CollectionInvestments,
	CollectionAuditLogs,
}

// AllCollections returns every collection in insertion order.
func AllCollections() []Collection {
	out := make([]Collection, len(InsertionOrder))
	copy(out, InsertionOrder)
	return out
}

// KnownCollection reports whether c names one of the eight collections.
// Names are case-sensitive.
func KnownCollection(c Collection) bool {
	for _, k := range InsertionOrder {
		if c == k {
			return true
		}
	}
	return false
}

// Store is the persistence boundary shared by the snapshot engine and the
// upgrade workflow. Implementations: MongoStore and MemoryStore.
type Store interface {
	// Dataset reads the included collections. A nil include set means all.
	Dataset(ctx context.Context, include map[Collection]bool) (*models.Dataset, error)
	// Replace clears every collection in DeletionOrder and inserts the
	// dataset's records in InsertionOrder. Callers wrap it in InTransaction
	// when all-or-nothing semantics are required.
	Replace(ctx context.Context, ds *models.Dataset) error
	AuditLogsSince(ctx context.Context, since time.Time) ([]models.AuditLog, error)
	AppendAuditLog(ctx context.Context, entry models.AuditLog) error

	Account(ctx context.Context, id string) (*models.Account, error)
	UpdateAccount(ctx context.Context, a *models.Account) error
	AccountsByRole(ctx context.Context, role models.Role) ([]models.Account, error)

	InsertClient(ctx context.Context, c *models.Client) error
	Client(ctx context.Context, id string) (*models.Client, error)
	GuestByAccount(ctx context.Context, accountID string) (*models.Guest, error)
	DeleteGuestByAccount(ctx context.Context, accountID string) error
	Employees(ctx context.Context) ([]models.Employee, error)
	ClientCountByEmployee(ctx context.Context) (map[string]int, error)
	InvestmentsByClient(ctx context.Context, clientID string) ([]models.Investment, error)

	InsertUpgradeRequest(ctx context.Context, r *models.UpgradeRequest) error
	UpgradeRequest(ctx context.Context, id string) (*models.UpgradeRequest, error)
	UpdateUpgradeRequest(ctx context.Context, r *models.UpgradeRequest) error
	PendingUpgradeRequest(ctx context.Context, accountID string) (*models.UpgradeRequest, error)
	LatestRejectedUpgradeRequest(ctx context.Context, accountID string) (*models.UpgradeRequest, error)

	// InTransaction runs fn atomically: either every mutation made through
	// the passed Store is committed, or none is.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
