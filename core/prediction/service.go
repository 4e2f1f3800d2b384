package prediction

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/billing"
)

var (
	// errors
	ErrNotFound = errors.New("prediction request not found")

	// ErrNotQueued reports a request that was billed and durably recorded but
	// could not be published to the work queue: the debit stands and the
	// request stays pending until it is re-published or resolved by hand.
	ErrNotQueued = errors.New("prediction request billed but not queued")
)

type (
	// Queue carries billed work items to fulfillment workers with durable,
	// at-least-once delivery.
	Queue interface {
		Publish(ctx context.Context, task Task) error
	}

	Repository interface {
		CreateRequest(ctx context.Context, req Request, exec ...core.DBExecutor) (Request, error)
		GetRequestByID(ctx context.Context, id int, exec ...core.DBExecutor) (Request, error)
		QueryRequestsByUser(ctx context.Context, userID, offset, limit int, exec ...core.DBExecutor) ([]Request, error)
		QueryAllRequests(ctx context.Context, offset, limit int, exec ...core.DBExecutor) ([]Request, error)

		// SetRequestOutcome moves a pending request to the outcome's terminal
		// status. It reports applied=false, without writing, when the request
		// is already terminal; ErrNotFound when it does not exist.
		SetRequestOutcome(ctx context.Context, id int, out Outcome, completedAt time.Time, exec ...core.DBExecutor) (req Request, applied bool, err error)
	}

	Service struct {
		atom   core.Atomizer
		repo   Repository
		ledger billing.Repository
		queue  Queue
		cost   float64
		logger core.Logger
	}
)

func NewService(atom core.Atomizer, repo Repository, ledger billing.Repository, queue Queue, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		atom:   atom,
		repo:   repo,
		ledger: ledger,
		queue:  queue,
		cost:   conf.PredictionCost,
		logger: logger,
	}
}

// Submit bills userID for one prediction on lessonID and enqueues the work.
// The pending Request, its fee Transaction and the balance debit become
// durable together or not at all. Returns billing.ErrInsufficientFunds with
// no side effects when the balance cannot cover the cost; returns the billed
// Request together with ErrNotQueued when the queue publish fails after
// commit.
func (svc *Service) Submit(ctx context.Context, userID, lessonID int) (Request, error) {
	// advisory pre-check; the authoritative check is the guarded delta below
	acc, err := svc.ledger.GetAccount(ctx, userID)
	if err != nil {
		return Request{}, err
	}
	if acc.Balance < svc.cost {
		return Request{}, billing.ErrInsufficientFunds
	}

	req := Request{
		UserID:    userID,
		LessonID:  lessonID,
		Status:    StatusPending,
		Cost:      svc.cost,
		CreatedAt: time.Now().UTC(),
	}
	err = svc.atom.Atomic(ctx, func(exec core.DBExecutor) error {
		var err error
		if req, err = svc.repo.CreateRequest(ctx, req, exec); err != nil {
			return errors.Wrap(err, "creating prediction request")
		}
		// funds may have changed since the pre-check; keep the sentinel as is
		if _, err = svc.ledger.ApplyBalanceDelta(ctx, userID, -svc.cost, exec); err != nil {
			return err
		}
		fee := billing.Transaction{
			UserID:       userID,
			Amount:       -svc.cost,
			Type:         billing.TxnPredictionFee,
			PredictionID: &req.ID,
			CreatedAt:    req.CreatedAt,
		}
		if _, err = svc.ledger.CreateTransaction(ctx, fee, exec); err != nil {
			return errors.Wrap(err, "recording fee transaction")
		}
		return nil
	})
	if err != nil {
		return Request{}, err
	}

	if err = svc.queue.Publish(ctx, NewTask(req)); err != nil {
		svc.logger.Error(fmt.Sprintf("prediction %d billed but not queued: %v", req.ID, err), err)
		return req, ErrNotQueued
	}
	return req, nil
}

// Reconcile applies a worker's terminal outcome to the request. Reconciling
// an already-terminal request is a no-op success, so redeliveries of the
// same work item cannot overwrite a recorded outcome.
func (svc *Service) Reconcile(ctx context.Context, id int, out Outcome) (Request, error) {
	req, applied, err := svc.repo.SetRequestOutcome(ctx, id, out, time.Now().UTC())
	if err != nil {
		return Request{}, err
	}
	if !applied {
		svc.logger.Warn(fmt.Sprintf("prediction %d already %s; ignoring %s outcome", id, req.Status, out.Status()))
	}
	return req, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (Request, error) {
	return svc.repo.GetRequestByID(ctx, id)
}

func (svc *Service) HistoryByUser(ctx context.Context, userID, offset, limit int) ([]Request, error) {
	return svc.repo.QueryRequestsByUser(ctx, userID, offset, limit)
}

func (svc *Service) QueryAll(ctx context.Context, offset, limit int) ([]Request, error) {
	return svc.repo.QueryAllRequests(ctx, offset, limit)
}
