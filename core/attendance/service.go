package attendance

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrSubjectNotFound   = errors.New("subject not found")
	ErrLessonNotFound    = errors.New("lesson not found")
	ErrSubjectExists      = errors.New("a subject with this name already exists")
	ErrAlreadyRecorded    = errors.New("attendance already recorded for this lesson")
	ErrLessonNotScheduled = errors.New("lesson date must be set")
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, sub Subject, exec ...core.DBExecutor) (Subject, error)
		QuerySubjects(ctx context.Context, exec ...core.DBExecutor) ([]Subject, error)
		GetSubjectByID(ctx context.Context, id int, exec ...core.DBExecutor) (Subject, error)

		CreateLesson(ctx context.Context, les Lesson, exec ...core.DBExecutor) (Lesson, error)
		QueryLessons(ctx context.Context, exec ...core.DBExecutor) ([]Lesson, error)
		GetLessonByID(ctx context.Context, id int, exec ...core.DBExecutor) (Lesson, error)

		CreateAttendance(ctx context.Context, att Attendance, exec ...core.DBExecutor) (Attendance, error)
		QueryAttendancesByUser(ctx context.Context, userID, offset, limit int, exec ...core.DBExecutor) ([]Attendance, error)

		// QueryHistoryByUser returns the user's attendances joined with their
		// lesson and subject, oldest first.
		QueryHistoryByUser(ctx context.Context, userID int, exec ...core.DBExecutor) ([]HistoryRecord, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	sub := Subject{Name: core.CleanString(ns.Name)}
	sub, err := svc.repo.CreateSubject(ctx, sub)
	if err != nil {
		if errors.Cause(err) == ErrSubjectExists {
			return Subject{}, core.NewValidationError(ErrSubjectExists, core.FieldError{Field: "name", Error: ErrSubjectExists.Error()})
		}
		return Subject{}, err
	}
	return sub, nil
}

func (svc *Service) QuerySubjects(ctx context.Context) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx)
}

func (svc *Service) CreateLesson(ctx context.Context, nl NewLesson) (Lesson, error) {
	if nl.DateTime.IsZero() {
		return Lesson{}, core.NewValidationError(ErrLessonNotScheduled, core.FieldError{Field: "date_time", Error: ErrLessonNotScheduled.Error()})
	}
	if _, err := svc.repo.GetSubjectByID(ctx, nl.SubjectID); err != nil {
		if errors.Cause(err) == ErrSubjectNotFound {
			return Lesson{}, core.NewValidationError(ErrSubjectNotFound, core.FieldError{Field: "subject_id", Error: ErrSubjectNotFound.Error()})
		}
		return Lesson{}, err
	}
	les := Lesson{
		SubjectID: nl.SubjectID,
		DateTime:  nl.DateTime.UTC(),
	}
	return svc.repo.CreateLesson(ctx, les)
}

func (svc *Service) QueryLessons(ctx context.Context) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx)
}

func (svc *Service) GetLesson(ctx context.Context, id int) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

func (svc *Service) Record(ctx context.Context, na NewAttendance) (Attendance, error) {
	if _, err := svc.repo.GetLessonByID(ctx, na.LessonID); err != nil {
		if errors.Cause(err) == ErrLessonNotFound {
			return Attendance{}, core.NewValidationError(ErrLessonNotFound, core.FieldError{Field: "lesson_id", Error: ErrLessonNotFound.Error()})
		}
		return Attendance{}, err
	}
	att := Attendance{
		UserID:   na.UserID,
		LessonID: na.LessonID,
		Attended: na.Attended,
	}
	att, err := svc.repo.CreateAttendance(ctx, att)
	if err != nil {
		if errors.Cause(err) == ErrAlreadyRecorded {
			return Attendance{}, core.NewValidationError(ErrAlreadyRecorded, core.FieldError{Field: "lesson_id", Error: ErrAlreadyRecorded.Error()})
		}
		return Attendance{}, err
	}
	return att, nil
}

func (svc *Service) QueryByUser(ctx context.Context, userID, offset, limit int) ([]Attendance, error) {
	return svc.repo.QueryAttendancesByUser(ctx, userID, offset, limit)
}

// History returns the attendance history fed to the prediction model.
func (svc *Service) History(ctx context.Context, userID int) ([]HistoryRecord, error) {
	return svc.repo.QueryHistoryByUser(ctx, userID)
}
