package models

import "time"

// Role is an account's access level.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
	RoleClient   Role = "CLIENT"
	RoleGuest    Role = "GUEST"
)

// Account is the top-level identity record. Clients, employees, admins and
// guests all reference an account by ID.
type Account struct {
	ID          string    `bson:"_id" json:"id"`
	Email       string    `bson:"email" json:"email"`
	Name        string    `bson:"name" json:"name"`
	Role        Role      `bson:"role" json:"role"`
	Permissions []string  `bson:"permissions" json:"permissions"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Client is a promoted account managed by an advisor (employee).
type Client struct {
	ID          string    `bson:"_id" json:"id"`
	AccountID   string    `bson:"accountId" json:"accountId"`
	EmployeeID  string    `bson:"employeeId" json:"employeeId"`
	RiskProfile string    `bson:"riskProfile,omitempty" json:"riskProfile,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// Employee is an advisor who manages a book of clients.
type Employee struct {
	ID        string    `bson:"_id" json:"id"`
	AccountID string    `bson:"accountId" json:"accountId"`
	Title     string    `bson:"title,omitempty" json:"title,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Admin is a back-office operator account.
type Admin struct {
	ID        string    `bson:"_id" json:"id"`
	AccountID string    `bson:"accountId" json:"accountId"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Guest is an unpromoted self-registered account. Deleted when the account
// is upgraded to client.
type Guest struct {
	ID           string    `bson:"_id" json:"id"`
	AccountID    string    `bson:"accountId" json:"accountId"`
	RegisteredAt time.Time `bson:"registeredAt" json:"registeredAt"`
}

// InvestmentStatus tracks an investment through its lifecycle.
type InvestmentStatus string

const (
	InvestmentActive InvestmentStatus = "ACTIVE"
	InvestmentSold   InvestmentStatus = "SOLD"
	InvestmentClosed InvestmentStatus = "CLOSED"
)

// Investment is a client position in a single instrument. Quantity and
// purchase price are stored as primitive numbers; valuation math happens in
// the stocks package with decimal arithmetic.
type Investment struct {
	ID            string           `bson:"_id" json:"id"`
	ClientID      string           `bson:"clientId" json:"clientId"`
	Symbol        string           `bson:"symbol" json:"symbol"`
	Quantity      float64          `bson:"quantity" json:"quantity"`
	PurchasePrice float64          `bson:"purchasePrice" json:"purchasePrice"`
	Status        InvestmentStatus `bson:"status" json:"status"`
	CreatedAt     time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time        `bson:"updatedAt" json:"updatedAt"`
}

// SystemConfig is a persisted key/value setting.
type SystemConfig struct {
	Key       string    `bson:"_id" json:"key"`
	Value     string    `bson:"value" json:"value"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// AuditLog records a mutation with the actor who performed it.
type AuditLog struct {
	ID          string         `bson:"_id" json:"id"`
	Timestamp   time.Time      `bson:"timestamp" json:"timestamp"`
	Entity      string         `bson:"entity" json:"entity"`
	Action      string         `bson:"action" json:"action"`
	PerformedBy string         `bson:"performedBy" json:"performedBy"`
	Data        map[string]any `bson:"data,omitempty" json:"data,omitempty"`
}

// Dataset is the full relational state moved by the snapshot engine: the
// eight collections serialized into a backup payload and replaced on restore.
type Dataset struct {
	Accounts    []Account      `bson:"accounts" json:"accounts"`
	Clients     []Client       `bson:"clients" json:"clients"`
	Employees   []Employee     `bson:"employees" json:"employees"`
	Admins      []Admin        `bson:"admins" json:"admins"`
	Guests      []Guest        `bson:"guests" json:"guests"`
	Investments []Investment   `bson:"investments" json:"investments"`
	Configs     []SystemConfig `bson:"configs" json:"configs"`
	AuditLogs   []AuditLog     `bson:"auditLogs" json:"auditLogs"`
}
