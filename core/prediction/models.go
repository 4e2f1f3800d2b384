package prediction

import (
	"time"

	"github.com/google/uuid"
)

type Status string

// A request starts pending and is moved exactly once, by Reconcile, to a
// terminal status. Terminal statuses are never left.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Request is one billed unit of asynchronous prediction work.
type Request struct {
	ID           int        `json:"id"`
	UserID       int        `json:"user_id"`
	LessonID     int        `json:"lesson_id"`
	Status       Status     `json:"status"`
	Cost         float64    `json:"cost"`
	Result       *Result    `json:"result,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`             // UTC
	CompletedAt  *time.Time `json:"completed_at,omitempty"` // UTC
}

type Result struct {
	Prediction  string  `json:"prediction"`
	Probability float64 `json:"probability"`
}

// Task kinds. The wire schema is closed and versioned: a consumer
// pattern-matches on Kind instead of probing an open map for optional keys.
const TaskKindAttendanceV1 = "attendance.v1"

// Task is the wire format of a queued work item.
type Task struct {
	ID           string `json:"id"` // message identity, for logs
	Kind         string `json:"kind"`
	PredictionID int    `json:"prediction_id"`
	UserID       int    `json:"user_id"`
	LessonID     int    `json:"lesson_id"`
}

func NewTask(req Request) Task {
	return Task{
		ID:           uuid.New().String(),
		Kind:         TaskKindAttendanceV1,
		PredictionID: req.ID,
		UserID:       req.UserID,
		LessonID:     req.LessonID,
	}
}

// Outcome is a worker's terminal verdict on a Request: a computed Result,
// or a failure message when Result is nil.
type Outcome struct {
	Result *Result
	Error  string
}

func CompletedOutcome(res Result) Outcome {
	return Outcome{Result: &res}
}

func FailedOutcome(msg string) Outcome {
	return Outcome{Error: msg}
}

func (o Outcome) Failed() bool {
	return o.Result == nil
}

func (o Outcome) Status() Status {
	if o.Failed() {
		return StatusFailed
	}
	return StatusCompleted
}
