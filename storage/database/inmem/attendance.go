package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

type attendanceRepository struct {
	subjects    *subjectTable
	lessons     *lessonTable
	attendances *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{
		subjects:    db.subject,
		lessons:     db.lesson,
		attendances: db.attendance,
	}
}

func (repo *attendanceRepository) CreateSubject(ctx context.Context, sub attendance.Subject, exec ...core.DBExecutor) (attendance.Subject, error) {
	repo.subjects.Lock()
	defer repo.subjects.Unlock()

	for _, existing := range repo.subjects.table {
		if existing.Name == sub.Name {
			return attendance.Subject{}, attendance.ErrSubjectExists
		}
	}
	repo.subjects.pkCount++
	sub.ID = repo.subjects.pkCount
	repo.subjects.table[sub.ID] = sub
	return sub, nil
}

func (repo *attendanceRepository) QuerySubjects(ctx context.Context, exec ...core.DBExecutor) ([]attendance.Subject, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	subs := make([]attendance.Subject, 0, len(repo.subjects.table))
	for _, sub := range repo.subjects.table {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Name < subs[j].Name })
	return subs, nil
}

func (repo *attendanceRepository) GetSubjectByID(ctx context.Context, id int, exec ...core.DBExecutor) (attendance.Subject, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	if sub, ok := repo.subjects.table[id]; ok {
		return sub, nil
	}
	return attendance.Subject{}, attendance.ErrSubjectNotFound
}

func (repo *attendanceRepository) CreateLesson(ctx context.Context, les attendance.Lesson, exec ...core.DBExecutor) (attendance.Lesson, error) {
	repo.lessons.Lock()
	defer repo.lessons.Unlock()

	repo.lessons.pkCount++
	les.ID = repo.lessons.pkCount
	repo.lessons.table[les.ID] = les
	return les, nil
}

func (repo *attendanceRepository) QueryLessons(ctx context.Context, exec ...core.DBExecutor) ([]attendance.Lesson, error) {
	repo.lessons.RLock()
	defer repo.lessons.RUnlock()

	lessons := make([]attendance.Lesson, 0, len(repo.lessons.table))
	for _, les := range repo.lessons.table {
		lessons = append(lessons, les)
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].DateTime.Before(lessons[j].DateTime) })
	return lessons, nil
}

func (repo *attendanceRepository) GetLessonByID(ctx context.Context, id int, exec ...core.DBExecutor) (attendance.Lesson, error) {
	repo.lessons.RLock()
	defer repo.lessons.RUnlock()

	if les, ok := repo.lessons.table[id]; ok {
		return les, nil
	}
	return attendance.Lesson{}, attendance.ErrLessonNotFound
}

func (repo *attendanceRepository) CreateAttendance(ctx context.Context, att attendance.Attendance, exec ...core.DBExecutor) (attendance.Attendance, error) {
	repo.attendances.Lock()
	defer repo.attendances.Unlock()

	for _, existing := range repo.attendances.table {
		if existing.UserID == att.UserID && existing.LessonID == att.LessonID {
			return attendance.Attendance{}, attendance.ErrAlreadyRecorded
		}
	}
	repo.attendances.pkCount++
	att.ID = repo.attendances.pkCount
	repo.attendances.table[att.ID] = att
	return att, nil
}

func (repo *attendanceRepository) QueryAttendancesByUser(ctx context.Context, userID, offset, limit int, exec ...core.DBExecutor) ([]attendance.Attendance, error) {
	repo.attendances.RLock()
	defer repo.attendances.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	atts := make([]attendance.Attendance, 0)
	for _, att := range repo.attendances.table {
		if att.UserID == userID {
			atts = append(atts, att)
		}
	}
	sort.Slice(atts, func(i, j int) bool { return atts[i].ID < atts[j].ID })
	if offset >= len(atts) {
		return []attendance.Attendance{}, nil
	}
	atts = atts[offset:]
	if limit < len(atts) {
		atts = atts[:limit]
	}
	return atts, nil
}

func (repo *attendanceRepository) QueryHistoryByUser(ctx context.Context, userID int, exec ...core.DBExecutor) ([]attendance.HistoryRecord, error) {
	repo.attendances.RLock()
	atts := make([]attendance.Attendance, 0)
	for _, att := range repo.attendances.table {
		if att.UserID == userID {
			atts = append(atts, att)
		}
	}
	repo.attendances.RUnlock()

	repo.lessons.RLock()
	defer repo.lessons.RUnlock()
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	recs := make([]attendance.HistoryRecord, 0, len(atts))
	for _, att := range atts {
		les, ok := repo.lessons.table[att.LessonID]
		if !ok {
			continue
		}
		sub, ok := repo.subjects.table[les.SubjectID]
		if !ok {
			continue
		}
		recs = append(recs, attendance.HistoryRecord{
			SubjectName: sub.Name,
			DateTime:    les.DateTime,
			Attended:    att.Attended,
		})
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].DateTime.Before(recs[j].DateTime) })
	return recs, nil
}
