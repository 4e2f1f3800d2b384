package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/prediction"
)

type predictionRow struct {
	ID           int         `db:"id"`
	UserID       int         `db:"user_id"`
	LessonID     int         `db:"lesson_id"`
	Status       string      `db:"status"`
	Cost         float64     `db:"cost"`
	Result       null.JSON   `db:"result"`
	ErrorMessage null.String `db:"error_message"`
	CreatedAt    time.Time   `db:"created_at"`
	CompletedAt  null.Time   `db:"completed_at"`
}

func (row predictionRow) unpack() (prediction.Request, error) {
	req := prediction.Request{
		ID:           row.ID,
		UserID:       row.UserID,
		LessonID:     row.LessonID,
		Status:       prediction.Status(row.Status),
		Cost:         row.Cost,
		ErrorMessage: row.ErrorMessage.String,
		CreatedAt:    row.CreatedAt,
	}
	if row.CompletedAt.Valid {
		at := row.CompletedAt.Time
		req.CompletedAt = &at
	}
	if row.Result.Valid {
		var res prediction.Result
		if err := json.Unmarshal(row.Result.JSON, &res); err != nil {
			return prediction.Request{}, errors.Wrap(err, "decoding prediction result")
		}
		req.Result = &res
	}
	return req, nil
}

type predictionRepository struct {
	db *sqlx.DB
}

var _ prediction.Repository = (*predictionRepository)(nil) // interface compliance check

func NewPredictionRepository(db *sqlx.DB) *predictionRepository {
	return &predictionRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to prediction.ErrNotFound
func (repo predictionRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return prediction.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo predictionRepository) CreateRequest(ctx context.Context, req prediction.Request, exec ...core.DBExecutor) (prediction.Request, error) {
	err := getExec(repo.db, exec).QueryRowxContext(ctx,
		`INSERT INTO predictions (user_id, lesson_id, status, cost, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		req.UserID, req.LessonID, req.Status, req.Cost, req.CreatedAt,
	).Scan(&req.ID)
	if err != nil {
		return prediction.Request{}, errors.Wrap(err, "inserting prediction request")
	}
	return req, nil
}

func (repo predictionRepository) GetRequestByID(ctx context.Context, id int, exec ...core.DBExecutor) (prediction.Request, error) {
	var row predictionRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`SELECT id, user_id, lesson_id, status, cost, result, error_message, created_at, completed_at
		 FROM predictions WHERE id = $1`, id)
	if err != nil {
		return prediction.Request{}, repo.trapNoRowsErr(err, "finding prediction request")
	}
	return row.unpack()
}

func (repo predictionRepository) QueryRequestsByUser(ctx context.Context, userID, offset, limit int, exec ...core.DBExecutor) ([]prediction.Request, error) {
	if limit <= 0 {
		limit = 100
	}
	return repo.query(ctx, getExec(repo.db, exec),
		`SELECT id, user_id, lesson_id, status, cost, result, error_message, created_at, completed_at
		 FROM predictions WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 OFFSET $2 LIMIT $3`, userID, offset, limit)
}

func (repo predictionRepository) QueryAllRequests(ctx context.Context, offset, limit int, exec ...core.DBExecutor) ([]prediction.Request, error) {
	if limit <= 0 {
		limit = 100
	}
	return repo.query(ctx, getExec(repo.db, exec),
		`SELECT id, user_id, lesson_id, status, cost, result, error_message, created_at, completed_at
		 FROM predictions
		 ORDER BY created_at DESC, id DESC
		 OFFSET $1 LIMIT $2`, offset, limit)
}

func (repo predictionRepository) query(ctx context.Context, exe execer, query string, args ...interface{}) ([]prediction.Request, error) {
	var rows []predictionRow
	if err := sqlx.SelectContext(ctx, exe, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying prediction requests")
	}
	reqs := make([]prediction.Request, 0, len(rows))
	for _, row := range rows {
		req, err := row.unpack()
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// SetRequestOutcome writes the terminal status only over a pending row; a
// redelivered work item that lost the race finds zero rows updated and the
// recorded outcome is left alone.
func (repo predictionRepository) SetRequestOutcome(ctx context.Context, id int, out prediction.Outcome, completedAt time.Time, exec ...core.DBExecutor) (prediction.Request, bool, error) {
	var result null.JSON
	if out.Result != nil {
		raw, err := json.Marshal(out.Result)
		if err != nil {
			return prediction.Request{}, false, errors.Wrap(err, "encoding prediction result")
		}
		result = null.JSONFrom(raw)
	}

	var row predictionRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`UPDATE predictions
		 SET status = $1, result = $2, error_message = $3, completed_at = $4
		 WHERE id = $5 AND status = $6
		 RETURNING id, user_id, lesson_id, status, cost, result, error_message, created_at, completed_at`,
		out.Status(), result, null.NewString(out.Error, out.Error != ""), completedAt, id, prediction.StatusPending)
	if err == nil {
		req, uerr := row.unpack()
		return req, true, uerr
	}
	if err != sql.ErrNoRows {
		return prediction.Request{}, false, errors.Wrap(err, "updating prediction outcome")
	}

	// zero rows: either absent or already terminal
	req, err := repo.GetRequestByID(ctx, id, exec...)
	if err != nil {
		return prediction.Request{}, false, err
	}
	return req, false, nil
}
