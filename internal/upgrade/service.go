package upgrade

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/advisorhub/backoffice/internal/apperr"
	"github.com/advisorhub/backoffice/internal/models"
	"github.com/advisorhub/backoffice/internal/notify"
	"github.com/advisorhub/backoffice/internal/roles"
	"github.com/advisorhub/backoffice/internal/store"
	"github.com/advisorhub/backoffice/pkg/logger"
	"github.com/advisorhub/backoffice/pkg/metrics"
)

// Service runs the guest-to-client upgrade workflow. Every mutating call
// takes the acting admin's account ID explicitly; there is no ambient
// identity.
type Service struct {
	store        store.Store
	notifier     notify.Notifier
	cooldownDays int
}

// NewService wires the workflow. cooldownDays > 0 enables the
// post-rejection waiting period in CheckEligibility; 0 disables it.
func NewService(st store.Store, n notify.Notifier, cooldownDays int) *Service {
	if n == nil {
		n = notify.LogNotifier{}
	}
	return &Service{store: st, notifier: n, cooldownDays: cooldownDays}
}

// Eligibility is the read-only answer to "may this account apply?".
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// CheckEligibility reports whether the account may submit an upgrade
// request. Never mutates anything.
func (s *Service) CheckEligibility(ctx context.Context, accountID string) (Eligibility, error) {
	acct, err := s.store.Account(ctx, accountID)
	if err != nil {
		if err == store.ErrNotFound {
			return Eligibility{}, apperr.NotFound("account", accountID)
		}
		return Eligibility{}, &apperr.DependencyError{Dep: "store", Err: err}
	}
	if acct.Role != models.RoleGuest {
		return Eligibility{Reason: "account is not a guest"}, nil
	}
	if _, err := s.store.PendingUpgradeRequest(ctx, accountID); err == nil {
		return Eligibility{Reason: "a pending upgrade request already exists"}, nil
	} else if err != store.ErrNotFound {
		return Eligibility{}, &apperr.DependencyError{Dep: "store", Err: err}
	}
	if s.cooldownDays > 0 {
		rej, err := s.store.LatestRejectedUpgradeRequest(ctx, accountID)
		if err != nil && err != store.ErrNotFound {
			return Eligibility{}, &apperr.DependencyError{Dep: "store", Err: err}
		}
		if err == nil && rej.ProcessedAt != nil {
			until := rej.ProcessedAt.AddDate(0, 0, s.cooldownDays)
			if time.Now().Before(until) {
				return Eligibility{Reason: fmt.Sprintf(
					"a rejected request is in its %d-day cooldown until %s",
					s.cooldownDays, until.Format("2006-01-02"))}, nil
			}
		}
	}
	return Eligibility{Eligible: true}, nil
}

// Submit creates a PENDING upgrade request for a guest account and notifies
// every admin. Fails with a ValidationError when the account is not a guest
// or already has a pending request.
func (s *Service) Submit(ctx context.Context, accountID, details string, answers map[string]string) (*models.UpgradeRequest, error) {
	elig, err := s.CheckEligibility(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !elig.Eligible {
		return nil, apperr.Validation("accountId", elig.Reason)
	}
	if raw, ok := answers["expectedInvestmentAmount"]; ok && raw != "" {
		amt, err := decimal.NewFromString(raw)
		if err != nil || amt.IsNegative() {
			return nil, apperr.Validation("answers.expectedInvestmentAmount", "must be a non-negative amount")
		}
	}

	req := &models.UpgradeRequest{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Status:      models.RequestPending,
		Details:     details,
		Answers:     answers,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.store.InsertUpgradeRequest(ctx, req); err != nil {
		return nil, &apperr.DependencyError{Dep: "store", Err: err}
	}
	s.audit(ctx, "upgrade_request", "submit", accountID, map[string]any{"requestId": req.ID})

	s.notifyAdmins(ctx, "New upgrade request",
		fmt.Sprintf("Account %s requested an upgrade to client status.", accountID))
	return req, nil
}

// Approve promotes the requesting account from guest to client. The role
// change, permission replacement, client creation, guest deletion and status
// update commit as one transaction; the user notification happens after
// commit and its failure is only logged.
func (s *Service) Approve(ctx context.Context, requestID, actor string) (*models.UpgradeRequest, error) {
	var approved *models.UpgradeRequest
	err := s.store.InTransaction(ctx, func(ctx context.Context, tx store.Store) error {
		req, err := s.loadPending(ctx, tx, requestID)
		if err != nil {
			return err
		}
		acct, err := tx.Account(ctx, req.AccountID)
		if err != nil {
			if err == store.ErrNotFound {
				return apperr.NotFound("account", req.AccountID)
			}
			return &apperr.DependencyError{Dep: "store", Err: err}
		}
		if acct.Role != models.RoleGuest {
			return apperr.Validation("accountId", "account is no longer a guest")
		}

		employeeID, err := s.leastLoadedEmployee(ctx, tx)
		if err != nil {
			return err
		}

		acct.Role = models.RoleClient
		acct.Permissions = roles.BasePermissions(models.RoleClient)
		acct.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateAccount(ctx, acct); err != nil {
			return &apperr.DependencyError{Dep: "store", Err: err}
		}

		client := &models.Client{
			ID:         uuid.NewString(),
			AccountID:  acct.ID,
			EmployeeID: employeeID,
			CreatedAt:  time.Now().UTC(),
		}
		if err := tx.InsertClient(ctx, client); err != nil {
			return &apperr.DependencyError{Dep: "store", Err: err}
		}
		if err := tx.DeleteGuestByAccount(ctx, acct.ID); err != nil && err != store.ErrNotFound {
			return &apperr.DependencyError{Dep: "store", Err: err}
		}

		now := time.Now().UTC()
		req.Status = models.RequestApproved
		req.ProcessedBy = actor
		req.ProcessedAt = &now
		if err := tx.UpdateUpgradeRequest(ctx, req); err != nil {
			return &apperr.DependencyError{Dep: "store", Err: err}
		}
		approved = req
		return nil
	})
	if err != nil {
		metrics.UpgradeDecisions.WithLabelValues("approve_failed").Inc()
		return nil, err
	}

	metrics.UpgradeDecisions.WithLabelValues("approved").Inc()
	s.audit(ctx, "upgrade_request", "approve", actor, map[string]any{"requestId": requestID})
	s.notifyUser(ctx, approved.AccountID, "Upgrade approved",
		"Your account has been upgraded to client status.")
	return approved, nil
}

// Reject marks the request REJECTED with the supplied reason. No account,
// permission, client or guest records change.
func (s *Service) Reject(ctx context.Context, requestID, reason, actor string) (*models.UpgradeRequest, error) {
	var rejected *models.UpgradeRequest
	err := s.store.InTransaction(ctx, func(ctx context.Context, tx store.Store) error {
		req, err := s.loadPending(ctx, tx, requestID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		req.Status = models.RequestRejected
		req.RejectionReason = reason
		req.ProcessedBy = actor
		req.ProcessedAt = &now
		if err := tx.UpdateUpgradeRequest(ctx, req); err != nil {
			return &apperr.DependencyError{Dep: "store", Err: err}
		}
		rejected = req
		return nil
	})
	if err != nil {
		metrics.UpgradeDecisions.WithLabelValues("reject_failed").Inc()
		return nil, err
	}

	metrics.UpgradeDecisions.WithLabelValues("rejected").Inc()
	s.audit(ctx, "upgrade_request", "reject", actor, map[string]any{"requestId": requestID})
	s.notifyUser(ctx, rejected.AccountID, "Upgrade rejected", "Your upgrade request was rejected: "+reason)
	return rejected, nil
}

func (s *Service) loadPending(ctx context.Context, tx store.Store, requestID string) (*models.UpgradeRequest, error) {
	req, err := tx.UpgradeRequest(ctx, requestID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.NotFound("upgrade request", requestID)
		}
		return nil, &apperr.DependencyError{Dep: "store", Err: err}
	}
	if req.Status != models.RequestPending {
		return nil, apperr.Validation("status", "request is not in pending status")
	}
	return req, nil
}

// leastLoadedEmployee picks the employee currently holding the fewest
// clients. Ties break by employee ID ascending so assignment is
// deterministic.
func (s *Service) leastLoadedEmployee(ctx context.Context, tx store.Store) (string, error) {
	employees, err := tx.Employees(ctx)
	if err != nil {
		return "", &apperr.DependencyError{Dep: "store", Err: err}
	}
	if len(employees) == 0 {
		return "", apperr.Validation("employees", "no employees available for client assignment")
	}
	counts, err := tx.ClientCountByEmployee(ctx)
	if err != nil {
		return "", &apperr.DependencyError{Dep: "store", Err: err}
	}
	sort.Slice(employees, func(i, j int) bool { return employees[i].ID < employees[j].ID })
	best := employees[0]
	for _, e := range employees[1:] {
		if counts[e.ID] < counts[best.ID] {
			best = e
		}
	}
	return best.ID, nil
}

func (s *Service) notifyAdmins(ctx context.Context, subject, body string) {
	admins, err := s.store.AccountsByRole(ctx, models.RoleAdmin)
	if err != nil {
		logger.Errorf("notify admins: list admin accounts: %v", err)
		return
	}
	for _, a := range admins {
		if err := s.notifier.Notify(ctx, a.ID, subject, body); err != nil {
			logger.Errorf("notify admin %s: %v", a.ID, err)
		}
	}
}

func (s *Service) notifyUser(ctx context.Context, accountID, subject, body string) {
	if err := s.notifier.Notify(ctx, accountID, subject, body); err != nil {
		logger.Errorf("notify %s: %v", accountID, err)
	}
}

func (s *Service) audit(ctx context.Context, entity, action, actor string, data map[string]any) {
	entry := models.AuditLog{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Entity:      entity,
		Action:      action,
		PerformedBy: actor,
		Data:        data,
	}
	if err := s.store.AppendAuditLog(ctx, entry); err != nil {
		logger.Errorf("append audit log (%s %s): %v", entity, action, err)
	}
}
