package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/billing"
	"github.com/trezcool/darasa/core/prediction"
	"github.com/trezcool/darasa/core/user"
)

type (
	DB struct {
		user        *userTable
		account     *accountTable
		transaction *transactionTable
		subject     *subjectTable
		lesson      *lessonTable
		attendance  *attendanceTable
		prediction  *predictionTable

		atomicMu sync.Mutex // serializes atomic units
	}

	userTable struct {
		sync.RWMutex
		table   map[int]user.User
		pkCount int
	}

	accountTable struct {
		sync.RWMutex
		table map[int]billing.Account // keyed by user ID
	}

	transactionTable struct {
		sync.RWMutex
		table   map[int]billing.Transaction
		pkCount int
	}

	subjectTable struct {
		sync.RWMutex
		table   map[int]attendance.Subject
		pkCount int
	}

	lessonTable struct {
		sync.RWMutex
		table   map[int]attendance.Lesson
		pkCount int
	}

	attendanceTable struct {
		sync.RWMutex
		table   map[int]attendance.Attendance
		pkCount int
	}

	predictionTable struct {
		sync.RWMutex
		table   map[int]prediction.Request
		pkCount int
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:        &userTable{table: make(map[int]user.User)},
		account:     &accountTable{table: make(map[int]billing.Account)},
		transaction: &transactionTable{table: make(map[int]billing.Transaction)},
		subject:     &subjectTable{table: make(map[int]attendance.Subject)},
		lesson:      &lessonTable{table: make(map[int]attendance.Lesson)},
		attendance:  &attendanceTable{table: make(map[int]attendance.Attendance)},
		prediction:  &predictionTable{table: make(map[int]prediction.Request)},
	}
	return db, nil
}

var _ core.Atomizer = (*DB)(nil) // interface compliance check

// Atomic serializes the unit against other atomic units, snapshots every
// table, and restores the snapshot when fn returns an error or panics. The
// repositories ignore the executor, so fn receives nil.
func (db *DB) Atomic(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	db.atomicMu.Lock()
	defer db.atomicMu.Unlock()

	snap := db.snapshot()
	defer func() {
		if r := recover(); r != nil {
			db.restore(snap)
			panic(r)
		}
		if err != nil {
			db.restore(snap)
		}
	}()
	return fn(nil)
}

type dbSnapshot struct {
	users        map[int]user.User
	accounts     map[int]billing.Account
	transactions map[int]billing.Transaction
	subjects     map[int]attendance.Subject
	lessons      map[int]attendance.Lesson
	attendances  map[int]attendance.Attendance
	predictions  map[int]prediction.Request

	userPK, txnPK, subjectPK, lessonPK, attendancePK, predictionPK int
}

func (db *DB) snapshot() dbSnapshot {
	snap := dbSnapshot{
		users:        make(map[int]user.User, len(db.user.table)),
		accounts:     make(map[int]billing.Account, len(db.account.table)),
		transactions: make(map[int]billing.Transaction, len(db.transaction.table)),
		subjects:     make(map[int]attendance.Subject, len(db.subject.table)),
		lessons:      make(map[int]attendance.Lesson, len(db.lesson.table)),
		attendances:  make(map[int]attendance.Attendance, len(db.attendance.table)),
		predictions:  make(map[int]prediction.Request, len(db.prediction.table)),
	}

	db.user.RLock()
	for k, v := range db.user.table {
		snap.users[k] = v
	}
	snap.userPK = db.user.pkCount
	db.user.RUnlock()

	db.account.RLock()
	for k, v := range db.account.table {
		snap.accounts[k] = v
	}
	db.account.RUnlock()

	db.transaction.RLock()
	for k, v := range db.transaction.table {
		snap.transactions[k] = v
	}
	snap.txnPK = db.transaction.pkCount
	db.transaction.RUnlock()

	db.subject.RLock()
	for k, v := range db.subject.table {
		snap.subjects[k] = v
	}
	snap.subjectPK = db.subject.pkCount
	db.subject.RUnlock()

	db.lesson.RLock()
	for k, v := range db.lesson.table {
		snap.lessons[k] = v
	}
	snap.lessonPK = db.lesson.pkCount
	db.lesson.RUnlock()

	db.attendance.RLock()
	for k, v := range db.attendance.table {
		snap.attendances[k] = v
	}
	snap.attendancePK = db.attendance.pkCount
	db.attendance.RUnlock()

	db.prediction.RLock()
	for k, v := range db.prediction.table {
		snap.predictions[k] = v
	}
	snap.predictionPK = db.prediction.pkCount
	db.prediction.RUnlock()

	return snap
}

func (db *DB) restore(snap dbSnapshot) {
	db.user.Lock()
	db.user.table = snap.users
	db.user.pkCount = snap.userPK
	db.user.Unlock()

	db.account.Lock()
	db.account.table = snap.accounts
	db.account.Unlock()

	db.transaction.Lock()
	db.transaction.table = snap.transactions
	db.transaction.pkCount = snap.txnPK
	db.transaction.Unlock()

	db.subject.Lock()
	db.subject.table = snap.subjects
	db.subject.pkCount = snap.subjectPK
	db.subject.Unlock()

	db.lesson.Lock()
	db.lesson.table = snap.lessons
	db.lesson.pkCount = snap.lessonPK
	db.lesson.Unlock()

	db.attendance.Lock()
	db.attendance.table = snap.attendances
	db.attendance.pkCount = snap.attendancePK
	db.attendance.Unlock()

	db.prediction.Lock()
	db.prediction.table = snap.predictions
	db.prediction.pkCount = snap.predictionPK
	db.prediction.Unlock()
}
