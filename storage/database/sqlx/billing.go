package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/billing"
)

type accountRow struct {
	UserID    int       `db:"user_id"`
	Balance   float64   `db:"balance"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row accountRow) unpack() billing.Account {
	return billing.Account{
		UserID:    row.UserID,
		Balance:   row.Balance,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type transactionRow struct {
	ID           int       `db:"id"`
	UserID       int       `db:"user_id"`
	Amount       float64   `db:"amount"`
	Type         string    `db:"type"`
	PredictionID null.Int  `db:"prediction_id"`
	CreatedAt    time.Time `db:"created_at"`
}

func (row transactionRow) unpack() billing.Transaction {
	txn := billing.Transaction{
		ID:        row.ID,
		UserID:    row.UserID,
		Amount:    row.Amount,
		Type:      row.Type,
		CreatedAt: row.CreatedAt,
	}
	if row.PredictionID.Valid {
		id := row.PredictionID.Int
		txn.PredictionID = &id
	}
	return txn
}

type accountRepository struct {
	db *sqlx.DB
}

var _ billing.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) *accountRepository {
	return &accountRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to billing.ErrNotFound
func (repo accountRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return billing.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo accountRepository) CreateAccount(ctx context.Context, userID int, exec ...core.DBExecutor) (billing.Account, error) {
	var row accountRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`INSERT INTO accounts (user_id, balance, is_active, created_at, updated_at)
		 VALUES ($1, 0, TRUE, NOW(), NOW())
		 RETURNING user_id, balance, is_active, created_at, updated_at`, userID)
	if err != nil {
		return billing.Account{}, errors.Wrap(err, "inserting account")
	}
	return row.unpack(), nil
}

func (repo accountRepository) GetAccount(ctx context.Context, userID int, exec ...core.DBExecutor) (billing.Account, error) {
	var row accountRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`SELECT user_id, balance, is_active, created_at, updated_at
		 FROM accounts WHERE user_id = $1`, userID)
	if err != nil {
		return billing.Account{}, repo.trapNoRowsErr(err, "finding account")
	}
	return row.unpack(), nil
}

func (repo accountRepository) ApplyBalanceDelta(ctx context.Context, userID int, delta float64, exec ...core.DBExecutor) (billing.Account, error) {
	exe := getExec(repo.db, exec)

	// serialize concurrent balance writes on the row lock; two debits racing
	// past a stale funds check is the classic TOCTOU this guards against
	var balance float64
	err := sqlx.GetContext(ctx, exe, &balance,
		`SELECT balance FROM accounts WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		return billing.Account{}, repo.trapNoRowsErr(err, "locking account")
	}
	if delta < 0 && balance+delta < 0 {
		return billing.Account{}, billing.ErrInsufficientFunds
	}

	var row accountRow
	err = sqlx.GetContext(ctx, exe, &row,
		`UPDATE accounts SET balance = balance + $1, updated_at = NOW()
		 WHERE user_id = $2
		 RETURNING user_id, balance, is_active, created_at, updated_at`, delta, userID)
	if err != nil {
		return billing.Account{}, errors.Wrap(err, "updating balance")
	}
	return row.unpack(), nil
}

func (repo accountRepository) CreateTransaction(ctx context.Context, txn billing.Transaction, exec ...core.DBExecutor) (billing.Transaction, error) {
	err := getExec(repo.db, exec).QueryRowxContext(ctx,
		`INSERT INTO transactions (user_id, amount, type, prediction_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		txn.UserID, txn.Amount, txn.Type, null.IntFromPtr(txn.PredictionID), txn.CreatedAt,
	).Scan(&txn.ID)
	if err != nil {
		return billing.Transaction{}, errors.Wrap(err, "inserting transaction")
	}
	return txn, nil
}

func (repo accountRepository) QueryTransactionsByUser(ctx context.Context, userID, offset, limit int, exec ...core.DBExecutor) ([]billing.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []transactionRow
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows,
		`SELECT id, user_id, amount, type, prediction_id, created_at
		 FROM transactions WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 OFFSET $2 LIMIT $3`, userID, offset, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying transactions")
	}
	txns := make([]billing.Transaction, 0, len(rows))
	for _, row := range rows {
		txns = append(txns, row.unpack())
	}
	return txns, nil
}
