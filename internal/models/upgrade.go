package models

import "time"

// RequestStatus is the upgrade-request lifecycle state. Transitions are
// PENDING -> APPROVED or PENDING -> REJECTED only, never reversed.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// UpgradeRequest is a guest's application to be promoted to client status.
// At most one PENDING request may exist per account.
type UpgradeRequest struct {
	ID              string            `bson:"_id" json:"id"`
	AccountID       string            `bson:"accountId" json:"accountId"`
	Status          RequestStatus     `bson:"status" json:"status"`
	Details         string            `bson:"details,omitempty" json:"details,omitempty"`
	Answers         map[string]string `bson:"answers,omitempty" json:"answers,omitempty"`
	RequestedAt     time.Time         `bson:"requestedAt" json:"requestedAt"`
	ProcessedBy     string            `bson:"processedBy,omitempty" json:"processedBy,omitempty"`
	ProcessedAt     *time.Time        `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	RejectionReason string            `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
}

// Notification is a persisted copy of a dispatched notification.
type Notification struct {
	ID        string    `bson:"_id" json:"id"`
	Recipient string    `bson:"recipient" json:"recipient"`
	Subject   string    `bson:"subject" json:"subject"`
	Body      string    `bson:"body" json:"body"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
