package attendance

import "time"

type Subject struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Lesson struct {
	ID        int       `json:"id"`
	SubjectID int       `json:"subject_id"`
	DateTime  time.Time `json:"date_time"` // UTC
}

type Attendance struct {
	ID       int  `json:"id"`
	UserID   int  `json:"user_id"`
	LessonID int  `json:"lesson_id"`
	Attended bool `json:"attended"`
}

// HistoryRecord is one attendance joined with its lesson and subject,
// the shape consumed by prediction.Predictor.
type HistoryRecord struct {
	SubjectName string    `json:"subject_name"`
	DateTime    time.Time `json:"date_time"`
	Attended    bool      `json:"attended"`
}

type NewSubject struct {
	Name string `json:"name" validate:"required,alphanum_"`
}

type NewLesson struct {
	SubjectID int       `json:"subject_id" validate:"required,gt=0"`
	DateTime  time.Time `json:"date_time" validate:"required"`
}

type NewAttendance struct {
	UserID   int  `json:"user_id" validate:"required,gt=0"`
	LessonID int  `json:"lesson_id" validate:"required,gt=0"`
	Attended bool `json:"attended"`
}
