package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/advisorhub/backoffice/internal/models"
)

func seedDataset() *models.Dataset {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Dataset{
		Accounts: []models.Account{
			{ID: "acc-1", Email: "a@x.com", Role: models.RoleGuest, CreatedAt: now, UpdatedAt: now},
			{ID: "acc-2", Email: "b@x.com", Role: models.RoleAdmin, CreatedAt: now, UpdatedAt: now},
		},
		Employees: []models.Employee{
			{ID: "emp-1", AccountID: "acc-9", CreatedAt: now},
		},
		Guests: []models.Guest{
			{ID: "g-1", AccountID: "acc-1", RegisteredAt: now},
		},
		Configs: []models.SystemConfig{
			{Key: "retention", Value: "30", UpdatedAt: now},
		},
		AuditLogs: []models.AuditLog{
			{ID: "log-1", Timestamp: now, Entity: "account", Action: "create", PerformedBy: "system"},
		},
	}
}

func TestMemoryStore_ReplaceAndDataset(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	m.Seed(&models.Dataset{
		Accounts: []models.Account{{ID: "old", Role: models.RoleClient}},
	})

	want := seedDataset()
	require.NoError(t, m.Replace(ctx, want))

	got, err := m.Dataset(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, want.Accounts, got.Accounts)
	require.Equal(t, want.Employees, got.Employees)
	require.Equal(t, want.Guests, got.Guests)
	require.Equal(t, want.Configs, got.Configs)
	require.Equal(t, want.AuditLogs, got.AuditLogs)
	require.Empty(t, got.Clients)
	require.Empty(t, got.Investments)
}

func TestMemoryStore_DatasetSubset(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	m.Seed(seedDataset())

	got, err := m.Dataset(ctx, map[Collection]bool{CollectionAccounts: true})
	require.NoError(t, err)
	require.Len(t, got.Accounts, 2)
	require.Empty(t, got.Guests)
	require.Empty(t, got.AuditLogs)
}

func TestMemoryStore_ClientLookup(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	m.Seed(&models.Dataset{
		Clients: []models.Client{{ID: "cl-1", AccountID: "acc-1", EmployeeID: "emp-1"}},
	})

	c, err := m.Client(ctx, "cl-1")
	require.NoError(t, err)
	require.Equal(t, "acc-1", c.AccountID)

	_, err = m.Client(ctx, "cl-2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestKnownCollection(t *testing.T) {
	for _, c := range AllCollections() {
		require.True(t, KnownCollection(c))
	}
	require.False(t, KnownCollection("Accounts"))
	require.False(t, KnownCollection("portfolios"))
	require.False(t, KnownCollection(""))
}

func TestMemoryStore_AuditLogsSince(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, ts := range []time.Time{base, base.Add(time.Hour), base.Add(2 * time.Hour)} {
		require.NoError(t, m.AppendAuditLog(ctx, models.AuditLog{
			ID:        string(rune('a' + i)),
			Timestamp: ts,
		}))
	}

	got, err := m.AuditLogsSince(ctx, base)
	require.NoError(t, err)
	require.Len(t, got, 2) // strictly newer than base
	require.True(t, got[0].Timestamp.Before(got[1].Timestamp))
}

func TestMemoryStore_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	m.Seed(seedDataset())

	boom := errors.New("boom")
	err := m.InTransaction(ctx, func(ctx context.Context, tx Store) error {
		require.NoError(t, tx.InsertClient(ctx, &models.Client{ID: "c-1", AccountID: "acc-1", EmployeeID: "emp-1"}))
		require.NoError(t, tx.DeleteGuestByAccount(ctx, "acc-1"))

		acct, err := tx.Account(ctx, "acc-1")
		require.NoError(t, err)
		acct.Role = models.RoleClient
		require.NoError(t, tx.UpdateAccount(ctx, acct))

		return boom
	})
	require.ErrorIs(t, err, boom)

	// every mutation must be rolled back
	acct, err := m.Account(ctx, "acc-1")
	require.NoError(t, err)
	require.Equal(t, models.RoleGuest, acct.Role)

	_, err = m.GuestByAccount(ctx, "acc-1")
	require.NoError(t, err)

	ds, err := m.Dataset(ctx, map[Collection]bool{CollectionClients: true})
	require.NoError(t, err)
	require.Empty(t, ds.Clients)
}

func TestMemoryStore_TransactionCommit(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	m.Seed(seedDataset())

	err := m.InTransaction(ctx, func(ctx context.Context, tx Store) error {
		return tx.InsertClient(ctx, &models.Client{ID: "c-1", AccountID: "acc-1", EmployeeID: "emp-1"})
	})
	require.NoError(t, err)

	ds, err := m.Dataset(ctx, map[Collection]bool{CollectionClients: true})
	require.NoError(t, err)
	require.Len(t, ds.Clients, 1)
}

func TestMemoryStore_PendingAndRejectedLookups(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	_, err := m.PendingUpgradeRequest(ctx, "acc-1")
	require.ErrorIs(t, err, ErrNotFound)

	t1 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.InsertUpgradeRequest(ctx, &models.UpgradeRequest{
		ID: "r-1", AccountID: "acc-1", Status: models.RequestRejected, ProcessedAt: &t1,
	}))
	require.NoError(t, m.InsertUpgradeRequest(ctx, &models.UpgradeRequest{
		ID: "r-2", AccountID: "acc-1", Status: models.RequestRejected, ProcessedAt: &t2,
	}))
	require.NoError(t, m.InsertUpgradeRequest(ctx, &models.UpgradeRequest{
		ID: "r-3", AccountID: "acc-1", Status: models.RequestPending,
	}))

	pending, err := m.PendingUpgradeRequest(ctx, "acc-1")
	require.NoError(t, err)
	require.Equal(t, "r-3", pending.ID)

	latest, err := m.LatestRejectedUpgradeRequest(ctx, "acc-1")
	require.NoError(t, err)
	require.Equal(t, "r-2", latest.ID)
}

func TestOrders_AreMirrored(t *testing.T) {
	require.Len(t, DeletionOrder, 8)
	require.Len(t, InsertionOrder, 8)
	for i, c := range DeletionOrder {
		require.Equal(t, c, InsertionOrder[len(InsertionOrder)-1-i])
	}
}
