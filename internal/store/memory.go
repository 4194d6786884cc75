package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/advisorhub/backoffice/internal/models"
)

// MemoryStore is a map-backed Store used by unit tests and backupctl dry
// runs. Values (not pointers) live in the maps, so callers mutating a
// returned record do not change stored state until they write it back.
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	accounts    map[string]models.Account
	clients     map[string]models.Client
	employees   map[string]models.Employee
	admins      map[string]models.Admin
	guests      map[string]models.Guest
	investments map[string]models.Investment
	configs     map[string]models.SystemConfig
	auditLogs   map[string]models.AuditLog
	requests    map[string]models.UpgradeRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:    make(map[string]models.Account),
		clients:     make(map[string]models.Client),
		employees:   make(map[string]models.Employee),
		admins:      make(map[string]models.Admin),
		guests:      make(map[string]models.Guest),
		investments: make(map[string]models.Investment),
		configs:     make(map[string]models.SystemConfig),
		auditLogs:   make(map[string]models.AuditLog),
		requests:    make(map[string]models.UpgradeRequest),
	}
}

// Seed loads a dataset without clearing; convenience for tests.
func (m *MemoryStore) Seed(ds *models.Dataset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertDataset(ds)
}

func (m *MemoryStore) insertDataset(ds *models.Dataset) {
	for _, a := range ds.Accounts {
		m.accounts[a.ID] = a
	}
	for _, c := range ds.Clients {
		m.clients[c.ID] = c
	}
	for _, e := range ds.Employees {
		m.employees[e.ID] = e
	}
	for _, a := range ds.Admins {
		m.admins[a.ID] = a
	}
	for _, g := range ds.Guests {
		m.guests[g.ID] = g
	}
	for _, i := range ds.Investments {
		m.investments[i.ID] = i
	}
	for _, c := range ds.Configs {
		m.configs[c.Key] = c
	}
	for _, l := range ds.AuditLogs {
		m.auditLogs[l.ID] = l
	}
}

func (m *MemoryStore) Dataset(ctx context.Context, include map[Collection]bool) (*models.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in := func(c Collection) bool { return include == nil || include[c] }

	ds := &models.Dataset{}
	if in(CollectionAccounts) {
		for _, a := range m.accounts {
			ds.Accounts = append(ds.Accounts, a)
		}
		sort.Slice(ds.Accounts, func(i, j int) bool { return ds.Accounts[i].ID < ds.Accounts[j].ID })
	}
	if in(CollectionClients) {
		for _, c := range m.clients {
			ds.Clients = append(ds.Clients, c)
		}
		sort.Slice(ds.Clients, func(i, j int) bool { return ds.Clients[i].ID < ds.Clients[j].ID })
	}
	if in(CollectionEmployees) {
		for _, e := range m.employees {
			ds.Employees = append(ds.Employees, e)
		}
		sort.Slice(ds.Employees, func(i, j int) bool { return ds.Employees[i].ID < ds.Employees[j].ID })
	}
	if in(CollectionAdmins) {
		for _, a := range m.admins {
			ds.Admins = append(ds.Admins, a)
		}
		sort.Slice(ds.Admins, func(i, j int) bool { return ds.Admins[i].ID < ds.Admins[j].ID })
	}
	if in(CollectionGuests) {
		for _, g := range m.guests {
			ds.Guests = append(ds.Guests, g)
		}
		sort.Slice(ds.Guests, func(i, j int) bool { return ds.Guests[i].ID < ds.Guests[j].ID })
	}
	if in(CollectionInvestments) {
		for _, i := range m.investments {
			ds.Investments = append(ds.Investments, i)
		}
		sort.Slice(ds.Investments, func(i, j int) bool { return ds.Investments[i].ID < ds.Investments[j].ID })
	}
	if in(CollectionConfigs) {
		for _, c := range m.configs {
			ds.Configs = append(ds.Configs, c)
		}
		sort.Slice(ds.Configs, func(i, j int) bool { return ds.Configs[i].Key < ds.Configs[j].Key })
	}
	if in(CollectionAuditLogs) {
		for _, l := range m.auditLogs {
			ds.AuditLogs = append(ds.AuditLogs, l)
		}
		sort.Slice(ds.AuditLogs, func(i, j int) bool { return ds.AuditLogs[i].ID < ds.AuditLogs[j].ID })
	}
	return ds, nil
}

func (m *MemoryStore) Replace(ctx context.Context, ds *models.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range DeletionOrder {
		switch c {
		case CollectionAuditLogs:
			m.auditLogs = make(map[string]models.AuditLog)
		case CollectionInvestments:
			m.investments = make(map[string]models.Investment)
		case CollectionGuests:
			m.guests = make(map[string]models.Guest)
		case CollectionAdmins:
			m.admins = make(map[string]models.Admin)
		case CollectionEmployees:
			m.employees = make(map[string]models.Employee)
		case CollectionClients:
			m.clients = make(map[string]models.Client)
		case CollectionAccounts:
			m.accounts = make(map[string]models.Account)
		case CollectionConfigs:
			m.configs = make(map[string]models.SystemConfig)
		}
	}
	m.insertDataset(ds)
	return nil
}

func (m *MemoryStore) AuditLogsSince(ctx context.Context, since time.Time) ([]models.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.AuditLog
	for _, l := range m.auditLogs {
		if l.Timestamp.After(since) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *MemoryStore) AppendAuditLog(ctx context.Context, entry models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditLogs[entry.ID] = entry
	return nil
}

func (m *MemoryStore) Account(ctx context.Context, id string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *MemoryStore) UpdateAccount(ctx context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; !ok {
		return ErrNotFound
	}
	m.accounts[a.ID] = *a
	return nil
}

func (m *MemoryStore) AccountsByRole(ctx context.Context, role models.Role) ([]models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Account
	for _, a := range m.accounts {
		if a.Role == role {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) InsertClient(ctx context.Context, c *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = *c
	return nil
}

func (m *MemoryStore) Client(ctx context.Context, id string) (*models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *MemoryStore) GuestByAccount(ctx context.Context, accountID string) (*models.Guest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.guests {
		if g.AccountID == accountID {
			return &g, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) DeleteGuestByAccount(ctx context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, g := range m.guests {
		if g.AccountID == accountID {
			delete(m.guests, id)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) Employees(ctx context.Context) ([]models.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) ClientCountByEmployee(ctx context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int)
	for _, c := range m.clients {
		out[c.EmployeeID]++
	}
	return out, nil
}

func (m *MemoryStore) InvestmentsByClient(ctx context.Context, clientID string) ([]models.Investment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Investment
	for _, i := range m.investments {
		if i.ClientID == clientID {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) InsertUpgradeRequest(ctx context.Context, r *models.UpgradeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = *r
	return nil
}

func (m *MemoryStore) UpgradeRequest(ctx context.Context, id string) (*models.UpgradeRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) UpdateUpgradeRequest(ctx context.Context, r *models.UpgradeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[r.ID]; !ok {
		return ErrNotFound
	}
	m.requests[r.ID] = *r
	return nil
}

func (m *MemoryStore) PendingUpgradeRequest(ctx context.Context, accountID string) (*models.UpgradeRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.requests {
		if r.AccountID == accountID && r.Status == models.RequestPending {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) LatestRejectedUpgradeRequest(ctx context.Context, accountID string) (*models.UpgradeRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *models.UpgradeRequest
	for _, r := range m.requests {
		if r.AccountID != accountID || r.Status != models.RequestRejected || r.ProcessedAt == nil {
			continue
		}
		r := r
		if latest == nil || r.ProcessedAt.After(*latest.ProcessedAt) {
			latest = &r
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

// InTransaction serializes transactions with txMu, snapshots all maps, and
// restores them when fn fails. Serialization also guarantees two concurrent
// approves cannot both observe a PENDING request.
func (m *MemoryStore) InTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.cloneState()
	if err := fn(ctx, m); err != nil {
		m.restoreState(snap)
		return err
	}
	return nil
}

type memoryState struct {
	accounts    map[string]models.Account
	clients     map[string]models.Client
	employees   map[string]models.Employee
	admins      map[string]models.Admin
	guests      map[string]models.Guest
	investments map[string]models.Investment
	configs     map[string]models.SystemConfig
	auditLogs   map[string]models.AuditLog
	requests    map[string]models.UpgradeRequest
}

func (m *MemoryStore) cloneState() memoryState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := memoryState{
		accounts:    make(map[string]models.Account, len(m.accounts)),
		clients:     make(map[string]models.Client, len(m.clients)),
		employees:   make(map[string]models.Employee, len(m.employees)),
		admins:      make(map[string]models.Admin, len(m.admins)),
		guests:      make(map[string]models.Guest, len(m.guests)),
		investments: make(map[string]models.Investment, len(m.investments)),
		configs:     make(map[string]models.SystemConfig, len(m.configs)),
		auditLogs:   make(map[string]models.AuditLog, len(m.auditLogs)),
		requests:    make(map[string]models.UpgradeRequest, len(m.requests)),
	}
	for k, v := range m.accounts {
		s.accounts[k] = v
	}
	for k, v := range m.clients {
		s.clients[k] = v
	}
	for k, v := range m.employees {
		s.employees[k] = v
	}
	for k, v := range m.admins {
		s.admins[k] = v
	}
	for k, v := range m.guests {
		s.guests[k] = v
	}
	for k, v := range m.investments {
		s.investments[k] = v
	}
	for k, v := range m.configs {
		s.configs[k] = v
	}
	for k, v := range m.auditLogs {
		s.auditLogs[k] = v
	}
	for k, v := range m.requests {
		s.requests[k] = v
	}
	return s
}

func (m *MemoryStore) restoreState(s memoryState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = s.accounts
	m.clients = s.clients
	m.employees = s.employees
	m.admins = s.admins
	m.guests = s.guests
	m.investments = s.investments
	m.configs = s.configs
	m.auditLogs = s.auditLogs
	m.requests = s.requests
}
