package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/prediction"
)

type predictionRepository struct {
	db *predictionTable
}

var _ prediction.Repository = (*predictionRepository)(nil) // interface compliance check

func NewPredictionRepository(db *DB) *predictionRepository {
	return &predictionRepository{db: db.prediction}
}

func (repo *predictionRepository) CreateRequest(ctx context.Context, req prediction.Request, exec ...core.DBExecutor) (prediction.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pkCount++
	req.ID = repo.db.pkCount
	repo.db.table[req.ID] = req
	return req, nil
}

func (repo *predictionRepository) GetRequestByID(ctx context.Context, id int, exec ...core.DBExecutor) (prediction.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if req, ok := repo.db.table[id]; ok {
		return req, nil
	}
	return prediction.Request{}, prediction.ErrNotFound
}

func (repo *predictionRepository) QueryRequestsByUser(ctx context.Context, userID, offset, limit int, exec ...core.DBExecutor) ([]prediction.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reqs := make([]prediction.Request, 0)
	for _, req := range repo.db.table {
		if req.UserID == userID {
			reqs = append(reqs, req)
		}
	}
	return paginateReqs(reqs, offset, limit), nil
}

func (repo *predictionRepository) QueryAllRequests(ctx context.Context, offset, limit int, exec ...core.DBExecutor) ([]prediction.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reqs := make([]prediction.Request, 0, len(repo.db.table))
	for _, req := range repo.db.table {
		reqs = append(reqs, req)
	}
	return paginateReqs(reqs, offset, limit), nil
}

func (repo *predictionRepository) SetRequestOutcome(ctx context.Context, id int, out prediction.Outcome, completedAt time.Time, exec ...core.DBExecutor) (prediction.Request, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	req, ok := repo.db.table[id]
	if !ok {
		return prediction.Request{}, false, prediction.ErrNotFound
	}
	if req.Status.Terminal() {
		return req, false, nil
	}

	req.Status = out.Status()
	req.Result = out.Result
	req.ErrorMessage = out.Error
	req.CompletedAt = &completedAt
	repo.db.table[id] = req
	return req, true, nil
}

// newest first, matching the SQL repository
func paginateReqs(reqs []prediction.Request, offset, limit int) []prediction.Request {
	if limit <= 0 {
		limit = 100
	}
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].ID > reqs[j].ID
		}
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
	if offset >= len(reqs) {
		return []prediction.Request{}
	}
	reqs = reqs[offset:]
	if limit < len(reqs) {
		reqs = reqs[:limit]
	}
	return reqs
}
