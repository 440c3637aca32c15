// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind はエラーの分類を表す。HTTPステータスへの変換はhandler層で行う。
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindConflict       ErrorKind = "conflict"
	KindAuthentication ErrorKind = "authentication"
	KindAuthorization  ErrorKind = "authorization"
	KindNotFound       ErrorKind = "not_found"
	KindRateLimited    ErrorKind = "rate_limited"
	KindInternal       ErrorKind = "internal"
)

// FieldError は入力フィールド単位の検証エラー。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Kind      ErrorKind
	Code      string       // エラーコード
	Message   string       // エラーメッセージ
	Category  string       // カテゴリ: auth, validation, note, system
	Action    string       // ユーザー向け対処方法
	Fields    []FieldError // KindValidationの場合に失敗した全フィールドを保持する
	Retryable bool         // 同時実行による一意制約違反など、再試行で解消しうる場合にtrue
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeUserExists         = "USER_EXISTS"
	ErrCodeIdentityConflict   = "IDENTITY_CONFLICT"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeNoteNotFound       = "NOTE_NOT_FOUND"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// AsAPIError はerrのチェーンからAPIErrorを取り出す。
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsKind はerrが指定種別のAPIErrorかどうかを返す。
func IsKind(err error, kind ErrorKind) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == kind
}

// NewValidationError はフィールド検証エラーを生成する。失敗した全フィールドを列挙する。
func NewValidationError(fields []FieldError) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeValidation,
		Message:  "Validation failed",
		Category: "validation",
		Action:   "Fix the listed fields and try again.",
		Fields:   fields,
	}
}

// NewInvalidRequestError はリクエストボディを解析できない場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeInvalidRequest,
		Message:  "Invalid request body",
		Category: "validation",
		Action:   "Send a valid JSON body.",
	}
}

// NewUserExistsError はユーザー重複エラーを生成する。
func NewUserExistsError() *APIError {
	return &APIError{
		Kind:     KindConflict,
		Code:     ErrCodeUserExists,
		Message:  "User already exists",
		Category: "auth",
		Action:   "Log in with the existing account or choose another username and email.",
	}
}

// NewIdentityConflictError は外部IDとの紐付けが一意制約に反した場合のエラーを生成する。
// 同一IdPユーザーのコールバックが並行した場合にも発生するため再試行可能とする。
func NewIdentityConflictError(retryable bool) *APIError {
	return &APIError{
		Kind:      KindConflict,
		Code:      ErrCodeIdentityConflict,
		Message:   "Account could not be linked",
		Category:  "auth",
		Action:    "Try signing in again.",
		Retryable: retryable,
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレスとパスワードのどちらが誤りかは区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Kind:     KindAuthentication,
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid credentials",
		Category: "auth",
		Action:   "Check your email and password.",
	}
}

// NewUnauthorizedError はトークン欠落・無効時のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Kind:     KindAuthentication,
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication required",
		Category: "auth",
		Action:   "Log in again.",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Kind:     KindAuthorization,
		Code:     ErrCodeForbidden,
		Message:  "Forbidden - Insufficient permissions",
		Category: "auth",
		Action:   "Ask an administrator for access.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Check the user ID.",
	}
}

// NewNoteNotFoundError はノートが見つからない場合のエラーを生成する。
func NewNoteNotFoundError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeNoteNotFound,
		Message:  "Note not found",
		Category: "note",
		Action:   "Reload your notes.",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Kind:     KindRateLimited,
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Please wait and retry after the specified time.",
	}
}

// NewInternalError は内部エラーの汎用レスポンスを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Kind:     KindInternal,
		Code:     ErrCodeInternal,
		Message:  "Something went wrong",
		Category: "system",
		Action:   "Please wait and try again.",
	}
}
