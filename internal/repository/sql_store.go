package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/clinic-queue/internal/database"
)

// SQLStore implements Store and UserStore on top of database/sql.  The same
// queries run on MySQL and SQLite; only the session row lock differs.
type SQLStore struct {
	db         *sql.DB
	lockClause string
}

// NewSQLStore returns a store bound to db.  dialect is database.MySQL or
// database.SQLite.  On MySQL InSession takes a row lock on the session
// (SELECT ... FOR UPDATE); SQLite serializes writers on its own.
func NewSQLStore(db *sql.DB, dialect string) *SQLStore {
	s := &SQLStore{db: db}
	if dialect == database.MySQL {
		s.lockClause = " FOR UPDATE"
	}
	return s
}

// DB exposes the underlying sql.DB for health checks and shutdown.
func (s *SQLStore) DB() *sql.DB { return s.db }

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// isUniqueViolation recognises duplicate-key errors from both drivers:
// MySQL error 1062 and SQLite's "UNIQUE constraint failed".
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
