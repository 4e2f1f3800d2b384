package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/attendance"
)

// stubDriver serves canned rows so column-to-field mapping can be checked
// without a live database.
type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return &stubConn{}, nil }

type stubConn struct{}

func (*stubConn) Prepare(query string) (driver.Stmt, error) { return &stubStmt{}, nil }
func (*stubConn) Close() error                              { return nil }
func (*stubConn) Begin() (driver.Tx, error)                 { return nil, errors.New("not supported") }

type stubStmt struct{}

func (*stubStmt) Close() error  { return nil }
func (*stubStmt) NumInput() int { return -1 }
func (*stubStmt) Exec(args []driver.Value) (driver.Result, error) {
	return nil, errors.New("not supported")
}
func (*stubStmt) Query(args []driver.Value) (driver.Rows, error) {
	return &stubRows{cols: stubCols, vals: stubVals}, nil
}

type stubRows struct {
	cols []string
	vals [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }
func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.vals) {
		return io.EOF
	}
	copy(dest, r.vals[r.idx])
	r.idx++
	return nil
}

var (
	stubCols []string
	stubVals [][]driver.Value
)

func init() { sql.Register("stub", stubDriver{}) }

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parsing time: %v", err)
	}
	return ts
}

// Every column the attendances query selects must land in a struct field;
// snake_case columns like user_id need explicit db tags to map.
func Test_attendanceRepository_QueryAttendancesByUser(t *testing.T) {
	stubCols = []string{"id", "user_id", "lesson_id", "attended"}
	stubVals = [][]driver.Value{
		{int64(1), int64(7), int64(3), true},
		{int64(2), int64(7), int64(4), false},
	}

	db, err := sqlx.Open("stub", "")
	if err != nil {
		t.Fatalf("opening stub DB: %v", err)
	}
	defer db.Close()
	repo := NewAttendanceRepository(db)

	atts, err := repo.QueryAttendancesByUser(context.Background(), 7, 0, 10)
	if err != nil {
		t.Fatalf("QueryAttendancesByUser() failed: %v", err)
	}
	want := []attendance.Attendance{
		{ID: 1, UserID: 7, LessonID: 3, Attended: true},
		{ID: 2, UserID: 7, LessonID: 4, Attended: false},
	}
	if !reflect.DeepEqual(atts, want) {
		t.Errorf("atts = %+v; want %+v", atts, want)
	}
}

func Test_attendanceRepository_QueryHistoryByUser(t *testing.T) {
	stubCols = []string{"subject_name", "date_time", "attended"}
	stubVals = [][]driver.Value{
		{"Maths", mustTime(t, "2021-03-08T10:00:00Z"), true},
	}

	db, err := sqlx.Open("stub", "")
	if err != nil {
		t.Fatalf("opening stub DB: %v", err)
	}
	defer db.Close()
	repo := NewAttendanceRepository(db)

	recs, err := repo.QueryHistoryByUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("QueryHistoryByUser() failed: %v", err)
	}
	if len(recs) != 1 || recs[0].SubjectName != "Maths" || !recs[0].Attended {
		t.Errorf("recs = %+v; want one attended Maths record", recs)
	}
}
