package billing_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/billing"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

func setup(t *testing.T) (*billing.Service, billing.Repository) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	repo := inmemdb.NewAccountRepository(db)
	return billing.NewService(db, repo), repo
}

func TestService_Credit(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	if _, err := repo.CreateAccount(ctx, 1); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}

	txn, err := svc.Credit(ctx, 1, 10, billing.TxnTopUp)
	if err != nil {
		t.Fatalf("Credit() failed: %v", err)
	}
	if txn.ID == 0 {
		t.Error("Credit() did not assign a transaction ID")
	}
	if txn.Amount != 10 || txn.Type != billing.TxnTopUp {
		t.Errorf("txn = %+v; want amount 10, type %s", txn, billing.TxnTopUp)
	}
	acc, err := svc.Account(ctx, 1)
	if err != nil {
		t.Fatalf("Account() failed: %v", err)
	}
	if acc.Balance != 10 {
		t.Errorf("Balance = %v; want 10", acc.Balance)
	}

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		for _, amount := range []float64{0, -5} {
			_, err := svc.Credit(ctx, 1, amount, billing.TxnTopUp)
			if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
				t.Errorf("Credit(%v) error = %v; want ValidationError", amount, err)
			}
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := svc.Credit(ctx, 99, 10, billing.TxnTopUp)
		if errors.Cause(err) != billing.ErrNotFound {
			t.Errorf("Credit() error = %v; want %v", err, billing.ErrNotFound)
		}
	})
}

func TestRepository_ApplyBalanceDelta(t *testing.T) {
	ctx := context.Background()
	_, repo := setup(t)

	if _, err := repo.CreateAccount(ctx, 1); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	if _, err := repo.ApplyBalanceDelta(ctx, 1, 3); err != nil {
		t.Fatalf("ApplyBalanceDelta() failed: %v", err)
	}

	// a debit below zero is rejected without writing
	if _, err := repo.ApplyBalanceDelta(ctx, 1, -3.5); err != billing.ErrInsufficientFunds {
		t.Fatalf("ApplyBalanceDelta() error = %v; want %v", err, billing.ErrInsufficientFunds)
	}
	acc, _ := repo.GetAccount(ctx, 1)
	if acc.Balance != 3 {
		t.Errorf("Balance = %v; want 3", acc.Balance)
	}

	// a debit to exactly zero is allowed
	if _, err := repo.ApplyBalanceDelta(ctx, 1, -3); err != nil {
		t.Fatalf("ApplyBalanceDelta() failed: %v", err)
	}
	acc, _ = repo.GetAccount(ctx, 1)
	if acc.Balance != 0 {
		t.Errorf("Balance = %v; want 0", acc.Balance)
	}
}

func TestService_Transactions(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	if _, err := repo.CreateAccount(ctx, 1); err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := svc.Credit(ctx, 1, float64(i+1), billing.TxnAdminCredit); err != nil {
			t.Fatalf("Credit() failed: %v", err)
		}
	}

	txns, err := svc.Transactions(ctx, 1, 0, 3)
	if err != nil {
		t.Fatalf("Transactions() failed: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("len(txns) = %d; want 3", len(txns))
	}
	// newest first
	if txns[0].Amount != 5 {
		t.Errorf("txns[0].Amount = %v; want 5", txns[0].Amount)
	}

	rest, err := svc.Transactions(ctx, 1, 3, 10)
	if err != nil {
		t.Fatalf("Transactions() failed: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("len(rest) = %d; want 2", len(rest))
	}
}
