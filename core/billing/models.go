package billing

import "time"

// Transaction types
const (
	TxnTopUp         = "topup"
	TxnPredictionFee = "prediction_fee"
	TxnAdminCredit   = "admin_credit"
)

// Account holds a user's balance. It is mutated exclusively through
// Repository.ApplyBalanceDelta; handlers never write it directly.
type Account struct {
	UserID    int       `json:"user_id"`
	Balance   float64   `json:"balance"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Transaction is an immutable signed ledger entry: positive amounts are
// credits, negative amounts are debits. Created once, never updated.
type Transaction struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	Amount       float64   `json:"amount"`
	Type         string    `json:"type"`
	PredictionID *int      `json:"prediction_id,omitempty"` // fee back-reference
	CreatedAt    time.Time `json:"created_at"`              // UTC
}
