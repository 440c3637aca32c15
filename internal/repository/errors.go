package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// ErrDuplicate は一意制約違反を表す。
var ErrDuplicate = errors.New("duplicate key")

// DuplicateError は違反した制約名を保持する一意制約違反エラー。
// errors.Is(err, ErrDuplicate) で判定できる。
type DuplicateError struct {
	Constraint string
	Err        error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate key violates %s: %v", e.Constraint, e.Err)
}

// Is はErrDuplicateとの比較を可能にする。
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

func (e *DuplicateError) Unwrap() error {
	return e.Err
}

// ConstraintOf はerrが一意制約違反の場合に制約名を返す。
func ConstraintOf(err error) (string, bool) {
	var dupErr *DuplicateError
	if errors.As(err, &dupErr) {
		return dupErr.Constraint, true
	}
	return "", false
}

// translateError はドライバのエラーをリポジトリのエラーに変換する。
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return &DuplicateError{Constraint: pqErr.Constraint, Err: err}
	}
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
