package sqlxrepos

import (
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/darasa/core"
)

// execer is what a repository call runs on: the repo's own *sqlx.DB or the
// *sqlx.Tx handed out by the database atomizer.
type execer interface {
	sqlx.ExtContext
}

func getExec(db *sqlx.DB, svcExec []core.DBExecutor) execer {
	if len(svcExec) > 0 {
		// the database atomizer always hands out *sqlx.Tx
		return svcExec[0].(execer)
	}
	return db
}

const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a psql unique constraint error.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}
