package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

type lessonRow struct {
	ID        int       `db:"id"`
	SubjectID int       `db:"subject_id"`
	DateTime  time.Time `db:"date_time"`
}

func (row lessonRow) unpack() attendance.Lesson {
	return attendance.Lesson{ID: row.ID, SubjectID: row.SubjectID, DateTime: row.DateTime}
}

type attendanceRow struct {
	ID       int  `db:"id"`
	UserID   int  `db:"user_id"`
	LessonID int  `db:"lesson_id"`
	Attended bool `db:"attended"`
}

func (row attendanceRow) unpack() attendance.Attendance {
	return attendance.Attendance{ID: row.ID, UserID: row.UserID, LessonID: row.LessonID, Attended: row.Attended}
}

type historyRow struct {
	SubjectName string    `db:"subject_name"`
	DateTime    time.Time `db:"date_time"`
	Attended    bool      `db:"attended"`
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo attendanceRepository) CreateSubject(ctx context.Context, sub attendance.Subject, exec ...core.DBExecutor) (attendance.Subject, error) {
	err := getExec(repo.db, exec).QueryRowxContext(ctx,
		`INSERT INTO subjects (name) VALUES ($1) RETURNING id`, sub.Name,
	).Scan(&sub.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return attendance.Subject{}, attendance.ErrSubjectExists
		}
		return attendance.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo attendanceRepository) QuerySubjects(ctx context.Context, exec ...core.DBExecutor) ([]attendance.Subject, error) {
	var subs []attendance.Subject
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &subs,
		`SELECT id, name FROM subjects ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subs, nil
}

func (repo attendanceRepository) GetSubjectByID(ctx context.Context, id int, exec ...core.DBExecutor) (attendance.Subject, error) {
	var sub attendance.Subject
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &sub,
		`SELECT id, name FROM subjects WHERE id = $1`, id)
	if err != nil {
		return attendance.Subject{}, repo.trapNoRowsErr(err, attendance.ErrSubjectNotFound, "finding subject")
	}
	return sub, nil
}

func (repo attendanceRepository) CreateLesson(ctx context.Context, les attendance.Lesson, exec ...core.DBExecutor) (attendance.Lesson, error) {
	err := getExec(repo.db, exec).QueryRowxContext(ctx,
		`INSERT INTO lessons (subject_id, date_time) VALUES ($1, $2) RETURNING id`,
		les.SubjectID, les.DateTime,
	).Scan(&les.ID)
	if err != nil {
		return attendance.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return les, nil
}

func (repo attendanceRepository) QueryLessons(ctx context.Context, exec ...core.DBExecutor) ([]attendance.Lesson, error) {
	var rows []lessonRow
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows,
		`SELECT id, subject_id, date_time FROM lessons ORDER BY date_time`)
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]attendance.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, row.unpack())
	}
	return lessons, nil
}

func (repo attendanceRepository) GetLessonByID(ctx context.Context, id int, exec ...core.DBExecutor) (attendance.Lesson, error) {
	var row lessonRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`SELECT id, subject_id, date_time FROM lessons WHERE id = $1`, id)
	if err != nil {
		return attendance.Lesson{}, repo.trapNoRowsErr(err, attendance.ErrLessonNotFound, "finding lesson")
	}
	return row.unpack(), nil
}

func (repo attendanceRepository) CreateAttendance(ctx context.Context, att attendance.Attendance, exec ...core.DBExecutor) (attendance.Attendance, error) {
	err := getExec(repo.db, exec).QueryRowxContext(ctx,
		`INSERT INTO attendances (user_id, lesson_id, attended) VALUES ($1, $2, $3) RETURNING id`,
		att.UserID, att.LessonID, att.Attended,
	).Scan(&att.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return attendance.Attendance{}, attendance.ErrAlreadyRecorded
		}
		return attendance.Attendance{}, errors.Wrap(err, "inserting attendance")
	}
	return att, nil
}

func (repo attendanceRepository) QueryAttendancesByUser(ctx context.Context, userID, offset, limit int, exec ...core.DBExecutor) ([]attendance.Attendance, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []attendanceRow
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows,
		`SELECT id, user_id, lesson_id, attended
		 FROM attendances WHERE user_id = $1
		 ORDER BY id
		 OFFSET $2 LIMIT $3`, userID, offset, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendances")
	}
	atts := make([]attendance.Attendance, 0, len(rows))
	for _, row := range rows {
		atts = append(atts, row.unpack())
	}
	return atts, nil
}

func (repo attendanceRepository) QueryHistoryByUser(ctx context.Context, userID int, exec ...core.DBExecutor) ([]attendance.HistoryRecord, error) {
	var rows []historyRow
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows,
		`SELECT s.name AS subject_name, l.date_time, a.attended
		 FROM attendances a
		 JOIN lessons l ON l.id = a.lesson_id
		 JOIN subjects s ON s.id = l.subject_id
		 WHERE a.user_id = $1
		 ORDER BY l.date_time`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance history")
	}
	recs := make([]attendance.HistoryRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, attendance.HistoryRecord{
			SubjectName: row.SubjectName,
			DateTime:    row.DateTime,
			Attended:    row.Attended,
		})
	}
	return recs, nil
}
