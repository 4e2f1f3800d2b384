package billing

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound          = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
)

type (
	Repository interface {
		CreateAccount(ctx context.Context, userID int, exec ...core.DBExecutor) (Account, error)
		GetAccount(ctx context.Context, userID int, exec ...core.DBExecutor) (Account, error)

		// ApplyBalanceDelta adjusts the account balance by delta. Two concurrent
		// debits must be serialized: the write is rejected with
		// ErrInsufficientFunds when delta is negative and the locked balance
		// would drop below zero. Credits always succeed.
		ApplyBalanceDelta(ctx context.Context, userID int, delta float64, exec ...core.DBExecutor) (Account, error)

		CreateTransaction(ctx context.Context, txn Transaction, exec ...core.DBExecutor) (Transaction, error)
		QueryTransactionsByUser(ctx context.Context, userID, offset, limit int, exec ...core.DBExecutor) ([]Transaction, error)
	}

	Service struct {
		atom core.Atomizer
		repo Repository
	}
)

func NewService(atom core.Atomizer, repo Repository) *Service {
	return &Service{
		atom: atom,
		repo: repo,
	}
}

func (svc *Service) Account(ctx context.Context, userID int) (Account, error) {
	return svc.repo.GetAccount(ctx, userID)
}

// Credit adds amount to the account and records the matching ledger entry
// in one unit. txnType is one of TxnTopUp, TxnAdminCredit.
func (svc *Service) Credit(ctx context.Context, userID int, amount float64, txnType string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, core.NewValidationError(ErrInvalidAmount, core.FieldError{Field: "amount", Error: ErrInvalidAmount.Error()})
	}

	txn := Transaction{
		UserID:    userID,
		Amount:    amount,
		Type:      txnType,
		CreatedAt: time.Now().UTC(),
	}
	err := svc.atom.Atomic(ctx, func(exec core.DBExecutor) error {
		var err error
		if _, err = svc.repo.ApplyBalanceDelta(ctx, userID, amount, exec); err != nil {
			return errors.Wrap(err, "applying balance delta")
		}
		if txn, err = svc.repo.CreateTransaction(ctx, txn, exec); err != nil {
			return errors.Wrap(err, "recording transaction")
		}
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

func (svc *Service) Transactions(ctx context.Context, userID, offset, limit int) ([]Transaction, error) {
	return svc.repo.QueryTransactionsByUser(ctx, userID, offset, limit)
}
