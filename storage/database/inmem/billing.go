package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/billing"
)

type accountRepository struct {
	accounts *accountTable
	txns     *transactionTable
}

var _ billing.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) *accountRepository {
	return &accountRepository{accounts: db.account, txns: db.transaction}
}

func (repo *accountRepository) CreateAccount(ctx context.Context, userID int, exec ...core.DBExecutor) (billing.Account, error) {
	repo.accounts.Lock()
	defer repo.accounts.Unlock()

	now := time.Now().UTC()
	acc := billing.Account{
		UserID:    userID,
		Balance:   0,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	repo.accounts.table[userID] = acc
	return acc, nil
}

func (repo *accountRepository) GetAccount(ctx context.Context, userID int, exec ...core.DBExecutor) (billing.Account, error) {
	repo.accounts.RLock()
	defer repo.accounts.RUnlock()

	if acc, ok := repo.accounts.table[userID]; ok {
		return acc, nil
	}
	return billing.Account{}, billing.ErrNotFound
}

func (repo *accountRepository) ApplyBalanceDelta(ctx context.Context, userID int, delta float64, exec ...core.DBExecutor) (billing.Account, error) {
	repo.accounts.Lock()
	defer repo.accounts.Unlock()

	acc, ok := repo.accounts.table[userID]
	if !ok {
		return billing.Account{}, billing.ErrNotFound
	}
	if delta < 0 && acc.Balance+delta < 0 {
		return billing.Account{}, billing.ErrInsufficientFunds
	}
	acc.Balance += delta
	acc.UpdatedAt = time.Now().UTC()
	repo.accounts.table[userID] = acc
	return acc, nil
}

func (repo *accountRepository) CreateTransaction(ctx context.Context, txn billing.Transaction, exec ...core.DBExecutor) (billing.Transaction, error) {
	repo.txns.Lock()
	defer repo.txns.Unlock()

	repo.txns.pkCount++
	txn.ID = repo.txns.pkCount
	repo.txns.table[txn.ID] = txn
	return txn, nil
}

func (repo *accountRepository) QueryTransactionsByUser(ctx context.Context, userID, offset, limit int, exec ...core.DBExecutor) ([]billing.Transaction, error) {
	repo.txns.RLock()
	defer repo.txns.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	txns := make([]billing.Transaction, 0)
	for _, txn := range repo.txns.table {
		if txn.UserID == userID {
			txns = append(txns, txn)
		}
	}
	// newest first, matching the SQL repository
	sort.Slice(txns, func(i, j int) bool {
		if txns[i].CreatedAt.Equal(txns[j].CreatedAt) {
			return txns[i].ID > txns[j].ID
		}
		return txns[i].CreatedAt.After(txns[j].CreatedAt)
	})
	return paginateTxns(txns, offset, limit), nil
}

func paginateTxns(txns []billing.Transaction, offset, limit int) []billing.Transaction {
	if offset >= len(txns) {
		return []billing.Transaction{}
	}
	txns = txns[offset:]
	if limit < len(txns) {
		txns = txns[:limit]
	}
	return txns
}
