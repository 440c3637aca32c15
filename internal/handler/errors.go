package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hitoshi/notekeeper/internal/middleware"
	"github.com/hitoshi/notekeeper/internal/model"
)

// maxBodyBytes はJSONリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// messageResponse はメッセージのみを返すレスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

// handleServiceError はサービス層から返されたエラーを統一フォーマットのレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	middleware.WriteError(w, err)
}

// writeJSON はvをJSONとしてstatusで書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON はリクエストボディをvに読み込む。
// 解析できない場合はINVALID_REQUESTの検証エラーを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return model.NewInvalidRequestError()
	}
	return nil
}

// WithUser は認証済みユーザーを明示的な引数として受け取るハンドラーをhttp.HandlerFuncに変換する。
// 認証ミドルウェアを通過していない場合は401を返す。
func WithUser(fn func(w http.ResponseWriter, r *http.Request, user *model.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			middleware.WriteAPIError(w, model.NewUnauthorizedError())
			return
		}
		fn(w, r, user)
	}
}
