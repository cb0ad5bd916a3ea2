package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ConstraintUsersEmail はusers.emailの一意制約名。
const ConstraintUsersEmail = "users_email_key"

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation = "23505"

// IsUniqueViolation はerrが指定制約の一意制約違反かを返す。
// constraintが空の場合は制約名を問わない。
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
