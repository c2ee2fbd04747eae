// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aircom83/ebbinghaus-english-public/internal/entry"
	"github.com/aircom83/ebbinghaus-english-public/internal/middleware"
	"github.com/aircom83/ebbinghaus-english-public/internal/model"
)

// maxImportFileSize はExcel取り込みファイルの上限サイズ（バイト）。
const maxImportFileSize = 5 << 20

// EntryServiceInterface はエントリーハンドラーが必要とするサービスインターフェース。
type EntryServiceInterface interface {
	// List は全エントリーのサマリー一覧と集計を返す。
	List(ctx context.Context, userID string) (*entry.ListResult, error)
	// Add は日本語・英語ペアを1件登録する。
	Add(ctx context.Context, userID, japanese, english string) (*model.Entry, error)
	// BulkAddLines は複数行テキストから一括登録する。
	BulkAddLines(ctx context.Context, userID, text string) (*entry.BulkResult, error)
	// ImportWorkbook はExcelファイルから一括登録する。
	ImportWorkbook(ctx context.Context, userID string, r io.Reader) (*entry.ImportResult, error)
	// Get はエントリー詳細を履歴付きで返す。
	Get(ctx context.Context, userID, entryID string) (*model.Entry, error)
	// Edit は日本語・英語テキストを更新する。
	Edit(ctx context.Context, userID, entryID, japanese, english string) (*model.Entry, error)
	// Delete はエントリーを削除する。
	Delete(ctx context.Context, userID, entryID string) error
	// DueEntries は今日復習対象のエントリーを返す。
	DueEntries(ctx context.Context, userID string) ([]*model.Entry, error)
	// PracticedToday は今日1回以上解答したエントリーを返す。
	PracticedToday(ctx context.Context, userID string) ([]*model.Entry, error)
}

// EntryHandler はエントリー管理のHTTPハンドラー。
type EntryHandler struct {
	service EntryServiceInterface
}

// NewEntryHandler はEntryHandlerを生成する。
func NewEntryHandler(service EntryServiceInterface) *EntryHandler {
	return &EntryHandler{service: service}
}

// createEntryRequest はエントリー登録リクエストのボディ。
type createEntryRequest struct {
	Japanese string `json:"japanese"`
	English  string `json:"english"`
}

// bulkCreateRequest は一括登録リクエストのボディ。
type bulkCreateRequest struct {
	Text string `json:"text"`
}

// updateEntryRequest はエントリー編集リクエストのボディ。
type updateEntryRequest struct {
	Japanese string `json:"japanese"`
	English  string `json:"english"`
}

// entryDetailResponse はエントリー詳細のAPIレスポンス。
type entryDetailResponse struct {
	ID            string               `json:"id"`
	Japanese      string               `json:"japanese"`
	English       string               `json:"english"`
	RegisteredOn  model.Date           `json:"registered_on"`
	Schedule      []model.Date         `json:"schedule"`
	NextTierIndex int                  `json:"next_tier_index"`
	History       []model.ReviewRecord `json:"history"`
	Completed     bool                 `json:"completed"`
}

// entryListPartResponse は特定条件で絞り込んだエントリー一覧のレスポンス。
type entryListPartResponse struct {
	Entries []entryDetailResponse `json:"entries"`
	Count   int                   `json:"count"`
}

// dictionaryLinkResponse は辞書リンクのAPIレスポンス。
type dictionaryLinkResponse struct {
	Term string `json:"term"`
	URL  string `json:"url"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// ListEntries はエントリー一覧を返す。
// GET /api/entries
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	result, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListDueEntries は今日復習対象のエントリー一覧を返す。
// GET /api/entries/due
func (h *EntryHandler) ListDueEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	entries, err := h.service.DueEntries(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEntryListPartResponse(entries))
}

// ListPracticedToday は今日解答済みのエントリー一覧を返す。追加練習の出題対象。
// GET /api/entries/practiced-today
func (h *EntryHandler) ListPracticedToday(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	entries, err := h.service.PracticedToday(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEntryListPartResponse(entries))
}

// CreateEntry はエントリーを1件登録する。
// POST /api/entries
func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidJSON(w)
		return
	}

	e, err := h.service.Add(r.Context(), userID, req.Japanese, req.English)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEntryDetailResponse(e))
}

// BulkCreateEntries は複数行テキストから一括登録する。
// POST /api/entries/bulk
//
// 有効な行は登録し、不正な行は行エラー一覧として返す（部分コミット）。
// 1件でも登録できれば201、全行不正なら422。
func (h *EntryHandler) BulkCreateEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req bulkCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidJSON(w)
		return
	}

	result, err := h.service.BulkAddLines(r.Context(), userID, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if result.Added == 0 && len(result.Errors) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// ImportEntries はExcelファイルから一括登録する。
// POST /api/entries/import (multipart/form-data, フィールド名 "file")
func (h *EntryHandler) ImportEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := r.ParseMultipartForm(maxImportFileSize); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "マルチパートフォームの解析に失敗しました。",
			Category: "validation",
			Action:   "ファイルをmultipart/form-data形式で送信してください。",
		})
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "ファイルが添付されていません。",
			Category: "validation",
			Action:   "fileフィールドにExcelファイルを添付してください。",
		})
		return
	}
	defer file.Close()

	result, err := h.service.ImportWorkbook(r.Context(), userID, file)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if result.Added == 0 && len(result.Errors) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// GetEntry はエントリー詳細を履歴付きで返す。
// GET /api/entries/:id
func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	entryID := chi.URLParam(r, "id")

	e, err := h.service.Get(r.Context(), userID, entryID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEntryDetailResponse(e))
}

// UpdateEntry は日本語・英語テキストを更新する。スケジュールと履歴は変わらない。
// PATCH /api/entries/:id
func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	entryID := chi.URLParam(r, "id")

	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidJSON(w)
		return
	}

	e, err := h.service.Edit(r.Context(), userID, entryID, req.Japanese, req.English)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEntryDetailResponse(e))
}

// DeleteEntry はエントリーを削除する。
// DELETE /api/entries/:id
func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	entryID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, entryID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DictionaryLink はエントリーの英語に対する外部辞書リンクを返す。
// GET /api/entries/:id/dictionary
func (h *EntryHandler) DictionaryLink(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}
	entryID := chi.URLParam(r, "id")

	e, err := h.service.Get(r.Context(), userID, entryID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	url, err := entry.DictionaryURL(e.English)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dictionaryLinkResponse{Term: e.English, URL: url})
}

// --- ヘルパー関数 ---

// toEntryDetailResponse はmodel.EntryからAPIレスポンスに変換する。
func toEntryDetailResponse(e *model.Entry) entryDetailResponse {
	history := e.History
	if history == nil {
		history = []model.ReviewRecord{}
	}
	return entryDetailResponse{
		ID:            e.ID,
		Japanese:      e.Japanese,
		English:       e.English,
		RegisteredOn:  e.RegisteredOn,
		Schedule:      e.Schedule[:],
		NextTierIndex: e.NextTierIndex,
		History:       history,
		Completed:     e.Completed,
	}
}

func toEntryListPartResponse(entries []*model.Entry) entryListPartResponse {
	resp := entryListPartResponse{
		Entries: make([]entryDetailResponse, 0, len(entries)),
		Count:   len(entries),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toEntryDetailResponse(e))
	}
	return resp
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeUnauthorized は未認証エラーレスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// writeInvalidJSON はリクエストボディ解析失敗のエラーレスポンスを書き込む。
func writeInvalidJSON(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeEntryNotFound, model.ErrCodeUserNotFound, model.ErrCodeNoQuizSession:
		return http.StatusNotFound
	case model.ErrCodeEmptyFields, model.ErrCodeEmptyAnswer,
		model.ErrCodeInvalidUsername, model.ErrCodeInvalidPassword:
		return http.StatusBadRequest
	case model.ErrCodeUsernameTaken, model.ErrCodeInvalidTransition:
		return http.StatusConflict
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
