package store

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	broker_errors "github.com/leadbroker/broker/pkg/errors"
)

// Full-stack CreateAssignment/GetLead coverage belongs behind an
// integration test against a real Postgres instance (or
// github.com/pashagolub/pgxmock, which the example pack does not carry
// anywhere) rather than DATA-DOG/go-sqlmock, which mocks database/sql and
// cannot stand in for a *pgxpool.Pool. isUniqueViolation is the one piece
// of this file with branching logic independent of the pool, so it is
// what gets covered here.
func TestIsUniqueViolation_MatchesCode23505(t *testing.T) {
	err := &pgconn.PgError{Code: uniqueViolationCode}
	assert.True(t, isUniqueViolation(err))
}

func TestIsUniqueViolation_OtherCodeIsFalse(t *testing.T) {
	err := &pgconn.PgError{Code: "23503"}
	assert.False(t, isUniqueViolation(err))
}

func TestIsUniqueViolation_NonPgErrorIsFalse(t *testing.T) {
	assert.False(t, isUniqueViolation(broker_errors.New("boom")))
}
