package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/notekeeper/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Category string             `json:"category"`
	Action   string             `json:"action"`
	Errors   []model.FieldError `json:"errors,omitempty"`
}

var kindStatus = map[model.ErrorKind]int{
	model.KindValidation:     http.StatusBadRequest,
	model.KindConflict:       http.StatusBadRequest,
	model.KindAuthentication: http.StatusUnauthorized,
	model.KindAuthorization:  http.StatusForbidden,
	model.KindNotFound:       http.StatusNotFound,
	model.KindRateLimited:    http.StatusTooManyRequests,
	model.KindInternal:       http.StatusInternalServerError,
}

// StatusFor はエラー種別に対応するHTTPステータスを返す。未知の種別は500とする。
func StatusFor(kind model.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
		Errors:   apiErr.Fields,
	})
}

// WriteAPIError はエラー種別からステータスを決めてレスポンスを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusFor(apiErr.Kind), apiErr)
}

// WriteError は任意のエラーをレスポンスに変換する。
// APIError以外は詳細をログのみに記録し、汎用の内部エラーを返す。
func WriteError(w http.ResponseWriter, err error) {
	if apiErr, ok := model.AsAPIError(err); ok {
		WriteAPIError(w, apiErr)
		return
	}
	slog.Error("unexpected error", slog.String("error", err.Error()))
	WriteInternalServerError(w)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
