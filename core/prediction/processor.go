package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/user"
)

type (
	// HistoryProvider supplies the attendance history consumed by a Predictor.
	HistoryProvider interface {
		History(ctx context.Context, userID int) ([]attendance.HistoryRecord, error)
	}

	// UserGetter resolves the owner of a request for outcome notifications.
	UserGetter interface {
		GetByID(ctx context.Context, id int) (user.User, error)
	}

	// Processor turns one dequeued work item into a terminal outcome on its
	// Request. Task-level failures never propagate: they end as a failed
	// outcome. The consumer loop must acknowledge the delivery exactly once
	// after Process returns, whatever happened.
	Processor struct {
		svc     *Service
		history HistoryProvider
		predict Predictor
		users   UserGetter
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewProcessor(
	svc *Service,
	history HistoryProvider,
	predict Predictor,
	users UserGetter,
	mailSvc core.EmailService,
	logger core.Logger,
) *Processor {
	return &Processor{
		svc:     svc,
		history: history,
		predict: predict,
		users:   users,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Process handles one delivered task body.
func (p *Processor) Process(ctx context.Context, body []byte) {
	task, err := DecodeTask(body)
	if err != nil {
		if task.PredictionID == 0 {
			// poison: the request cannot even be identified; drop the item
			p.logger.Error(fmt.Sprintf("dropping malformed task: %v", err), err)
			return
		}
		p.fail(ctx, task, err.Error())
		return
	}

	p.logger.Info(fmt.Sprintf("processing task %s (prediction %d, user %d, lesson %d)",
		task.ID, task.PredictionID, task.UserID, task.LessonID))

	history, err := p.history.History(ctx, task.UserID)
	if err != nil {
		p.fail(ctx, task, fmt.Sprintf("fetching attendance history: %v", err))
		return
	}

	res, err := p.predict(history, task.LessonID)
	if err != nil {
		p.fail(ctx, task, fmt.Sprintf("computing prediction: %v", err))
		return
	}

	req, err := p.svc.Reconcile(ctx, task.PredictionID, CompletedOutcome(res))
	if err != nil {
		// NotFound should not happen: nothing deletes requests
		p.logger.Error(fmt.Sprintf("reconciling prediction %d: %v", task.PredictionID, err), err)
		return
	}
	p.notify(ctx, req)
}

func (p *Processor) fail(ctx context.Context, task Task, msg string) {
	p.logger.Warn(fmt.Sprintf("failing prediction %d: %s", task.PredictionID, msg))
	req, err := p.svc.Reconcile(ctx, task.PredictionID, FailedOutcome(msg))
	if err != nil {
		p.logger.Error(fmt.Sprintf("reconciling prediction %d as failed: %v", task.PredictionID, err), err)
		return
	}
	p.notify(ctx, req)
}

// notify sends a courtesy email to the request's owner. Best effort.
func (p *Processor) notify(ctx context.Context, req Request) {
	if p.mailSvc == nil || p.users == nil {
		return
	}
	usr, err := p.users.GetByID(ctx, req.UserID)
	if err != nil {
		p.logger.Warn(fmt.Sprintf("notifying user %d: %v", req.UserID, err))
		return
	}

	var body string
	switch req.Status {
	case StatusCompleted:
		body = fmt.Sprintf("Hi %s,\n\nYour attendance prediction for lesson %d is ready:\n%s\n", usr.Name, req.LessonID, req.Result.Prediction)
	case StatusFailed:
		body = fmt.Sprintf("Hi %s,\n\nYour attendance prediction for lesson %d could not be computed.\n", usr.Name, req.LessonID)
	default:
		return
	}
	p.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: fmt.Sprintf("Prediction #%d %s", req.ID, req.Status),
		BodyStr: body,
	})
}

// DecodeTask parses and validates a work item body. On a validation error the
// returned Task still carries whatever fields could be read, so the caller
// can fail the matching request when it is identifiable.
func DecodeTask(body []byte) (Task, error) {
	var task Task
	if err := json.Unmarshal(body, &task); err != nil {
		return task, errors.Wrap(err, "decoding task")
	}
	if task.PredictionID == 0 {
		return task, errors.New("task missing prediction_id")
	}
	if task.Kind != TaskKindAttendanceV1 {
		return task, errors.Errorf("unknown task kind %q", task.Kind)
	}
	if task.UserID == 0 || task.LessonID == 0 {
		return task, errors.New("task missing user_id or lesson_id")
	}
	return task, nil
}
