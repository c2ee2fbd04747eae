package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aircom83/ebbinghaus-english-public/internal/metrics"
	"github.com/aircom83/ebbinghaus-english-public/internal/middleware"
	"github.com/aircom83/ebbinghaus-english-public/internal/model"
	"github.com/aircom83/ebbinghaus-english-public/internal/quiz"
)

// QuizEntrySource は出題対象のエントリーを引くためのインターフェース。
type QuizEntrySource interface {
	// DueEntries は今日復習対象のエントリーを返す。復習テストの出題対象。
	DueEntries(ctx context.Context, userID string) ([]*model.Entry, error)
	// PracticedToday は今日解答済みのエントリーを返す。追加練習の出題対象。
	PracticedToday(ctx context.Context, userID string) ([]*model.Entry, error)
}

// QuizHandler は復習テストと追加練習のHTTPハンドラー。
//
// セッション状態はManagerがユーザーごとにメモリ上で保持し、
// 各エンドポイントが状態機械の1遷移に対応する。
type QuizHandler struct {
	manager  *quiz.Manager
	entries  QuizEntrySource
	recorder quiz.AnswerRecorder
	metrics  metrics.MetricsCollector
}

// NewQuizHandler はQuizHandlerを生成する。
func NewQuizHandler(
	manager *quiz.Manager,
	entries QuizEntrySource,
	recorder quiz.AnswerRecorder,
	collector metrics.MetricsCollector,
) *QuizHandler {
	return &QuizHandler{
		manager:  manager,
		entries:  entries,
		recorder: recorder,
		metrics:  collector,
	}
}

// answerRequest は解答リクエストのボディ。
type answerRequest struct {
	Answer string `json:"answer"`
}

// questionResponse は出題中の問題のAPIレスポンス。
type questionResponse struct {
	EntryID  string `json:"entry_id"`
	Japanese string `json:"japanese"`
}

// feedbackResponse は直前の解答のフィードバックのAPIレスポンス。
type feedbackResponse struct {
	Correct   bool   `json:"correct"`
	Expected  string `json:"expected"`
	Completed bool   `json:"completed,omitempty"`
}

// testStateResponse は復習テストの状態スナップショット。
type testStateResponse struct {
	State     quiz.State        `json:"state"`
	Round     int               `json:"round"`
	Position  int               `json:"position"`
	QueueSize int               `json:"queue_size"`
	Total     int               `json:"total"`
	Correct   int               `json:"correct"`
	Tested    int               `json:"tested"`
	Incorrect int               `json:"incorrect"`
	Question  *questionResponse `json:"question,omitempty"`
	Feedback  *feedbackResponse `json:"feedback,omitempty"`
}

// missedPairResponse は練習で不正解だったペアのAPIレスポンス。
type missedPairResponse struct {
	EntryID  string `json:"entry_id"`
	Japanese string `json:"japanese"`
	English  string `json:"english"`
}

// practiceResultResponse は追加練習1周分の結果のAPIレスポンス。
type practiceResultResponse struct {
	Total   int                  `json:"total"`
	Correct int                  `json:"correct"`
	Percent int                  `json:"percent"`
	Missed  []missedPairResponse `json:"missed"`
}

// practiceStateResponse は追加練習の状態スナップショット。
type practiceStateResponse struct {
	State    quiz.State              `json:"state"`
	Position int                     `json:"position"`
	Total    int                     `json:"total"`
	Question *questionResponse       `json:"question,omitempty"`
	Feedback *feedbackResponse       `json:"feedback,omitempty"`
	Result   *practiceResultResponse `json:"result,omitempty"`
}

// --- 復習テスト ---

// StartTest は今日の復習対象で復習テストを開始する。
// POST /api/quiz/test
//
// 既存のテストセッションがあれば破棄して新しく始める。
// 復習対象が空の場合もemptyステートのセッションとして返す。
func (h *QuizHandler) StartTest(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	due, err := h.entries.DueEntries(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	s := h.manager.StartTest(userID, due)
	if h.metrics != nil {
		h.metrics.RecordQuizStarted("test")
	}
	writeJSON(w, http.StatusCreated, toTestStateResponse(s))
}

// GetTest は進行中の復習テストの状態を返す。
// GET /api/quiz/test
func (h *QuizHandler) GetTest(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	s, ok := h.manager.Test(userID)
	if !ok {
		handleServiceError(w, model.NewNoQuizSessionError())
		return
	}
	writeJSON(w, http.StatusOK, toTestStateResponse(s))
}

// AnswerTest は現在の問題に解答する。解答は即座に記録・永続化される。
// POST /api/quiz/test/answer
func (h *QuizHandler) AnswerTest(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidJSON(w)
		return
	}

	if _, err := h.manager.SubmitTest(r.Context(), userID, h.recorder, req.Answer); err != nil {
		handleServiceError(w, err)
		return
	}

	// 別タブのDELETEと競合した場合はセッションが消えていることがある
	s, ok := h.manager.Test(userID)
	if !ok {
		handleServiceError(w, model.NewNoQuizSessionError())
		return
	}
	writeJSON(w, http.StatusOK, toTestStateResponse(s))
}

// AdvanceTest はフィードバック確認後に次の問題へ進む。
// POST /api/quiz/test/advance
func (h *QuizHandler) AdvanceTest(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.manager.AdvanceTest(userID); err != nil {
		handleServiceError(w, err)
		return
	}

	s, ok := h.manager.Test(userID)
	if !ok {
		handleServiceError(w, model.NewNoQuizSessionError())
		return
	}
	if s.State() == quiz.StateFinalResult && h.metrics != nil {
		h.metrics.RecordQuizCompleted("test")
	}
	writeJSON(w, http.StatusOK, toTestStateResponse(s))
}

// RetryTest は不正解分の再テストラウンドを開始する。
// POST /api/quiz/test/retry
func (h *QuizHandler) RetryTest(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.manager.RetryTest(userID); err != nil {
		handleServiceError(w, err)
		return
	}

	s, ok := h.manager.Test(userID)
	if !ok {
		handleServiceError(w, model.NewNoQuizSessionError())
		return
	}
	writeJSON(w, http.StatusOK, toTestStateResponse(s))
}

// EndTest は復習テストを中断する。解答済みの記録は保存されたまま残る。
// DELETE /api/quiz/test
func (h *QuizHandler) EndTest(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	h.manager.EndTest(userID)
	w.WriteHeader(http.StatusNoContent)
}

// --- 追加練習 ---

// StartPractice は今日解答済みのエントリーで追加練習を開始する。
// POST /api/quiz/practice
func (h *QuizHandler) StartPractice(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	practiced, err := h.entries.PracticedToday(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	s := h.manager.StartPractice(userID, practiced)
	if h.metrics != nil {
		h.metrics.RecordQuizStarted("practice")
	}
	writeJSON(w, http.StatusCreated, toPracticeStateResponse(s))
}

// GetPractice は進行中の追加練習の状態を返す。
// GET /api/quiz/practice
func (h *QuizHandler) GetPractice(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	s, ok := h.manager.Practice(userID)
	if !ok {
		handleServiceError(w, model.NewNoQuizSessionError())
		return
	}
	writeJSON(w, http.StatusOK, toPracticeStateResponse(s))
}

// AnswerPractice は現在の問題にローカル判定で解答する。記録は残らない。
// POST /api/quiz/practice/answer
func (h *QuizHandler) AnswerPractice(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidJSON(w)
		return
	}

	if _, err := h.manager.SubmitPractice(userID, req.Answer); err != nil {
		handleServiceError(w, err)
		return
	}

	// 別タブのDELETEと競合した場合はセッションが消えていることがある
	s, ok := h.manager.Practice(userID)
	if !ok {
		handleServiceError(w, model.NewNoQuizSessionError())
		return
	}
	writeJSON(w, http.StatusOK, toPracticeStateResponse(s))
}

// AdvancePractice はフィードバック確認後に次の問題へ進む。
// POST /api/quiz/practice/advance
func (h *QuizHandler) AdvancePractice(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.manager.AdvancePractice(userID); err != nil {
		handleServiceError(w, err)
		return
	}

	s, ok := h.manager.Practice(userID)
	if !ok {
		handleServiceError(w, model.NewNoQuizSessionError())
		return
	}
	if s.State() == quiz.StateFinalResult && h.metrics != nil {
		h.metrics.RecordQuizCompleted("practice")
	}
	writeJSON(w, http.StatusOK, toPracticeStateResponse(s))
}

// AgainPractice は同じ出題対象を再シャッフルしてもう1周始める。
// POST /api/quiz/practice/again
func (h *QuizHandler) AgainPractice(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.manager.ReshufflePractice(userID); err != nil {
		handleServiceError(w, err)
		return
	}

	s, ok := h.manager.Practice(userID)
	if !ok {
		handleServiceError(w, model.NewNoQuizSessionError())
		return
	}
	writeJSON(w, http.StatusOK, toPracticeStateResponse(s))
}

// EndPractice は追加練習を終了する。
// DELETE /api/quiz/practice
func (h *QuizHandler) EndPractice(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	h.manager.EndPractice(userID)
	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toTestStateResponse は復習テストの状態をAPIレスポンスに変換する。
func toTestStateResponse(s *quiz.TestSession) testStateResponse {
	resp := testStateResponse{
		State:     s.State(),
		Round:     s.Round(),
		Position:  s.Position(),
		QueueSize: s.QueueSize(),
		Total:     s.Total(),
		Correct:   s.Correct(),
		Tested:    s.Tested(),
		Incorrect: s.IncorrectCount(),
	}
	if q, ok := s.Current(); ok {
		resp.Question = &questionResponse{EntryID: q.EntryID, Japanese: q.Japanese}
	}
	if fb, ok := s.LastFeedback(); ok {
		resp.Feedback = &feedbackResponse{
			Correct:   fb.Correct,
			Expected:  fb.Expected,
			Completed: fb.Completed,
		}
	}
	return resp
}

// toPracticeStateResponse は追加練習の状態をAPIレスポンスに変換する。
func toPracticeStateResponse(s *quiz.PracticeSession) practiceStateResponse {
	resp := practiceStateResponse{
		State:    s.State(),
		Position: s.Position(),
		Total:    s.Total(),
	}
	if q, ok := s.Current(); ok {
		resp.Question = &questionResponse{EntryID: q.EntryID, Japanese: q.Japanese}
	}
	if fb, ok := s.LastFeedback(); ok {
		resp.Feedback = &feedbackResponse{Correct: fb.Correct, Expected: fb.Expected}
	}
	if result, ok := s.Result(); ok {
		missed := make([]missedPairResponse, len(result.Missed))
		for i, m := range result.Missed {
			missed[i] = missedPairResponse{
				EntryID:  m.EntryID,
				Japanese: m.Japanese,
				English:  m.English,
			}
		}
		resp.Result = &practiceResultResponse{
			Total:   result.Total,
			Correct: result.Correct,
			Percent: result.Percent,
			Missed:  missed,
		}
	}
	return resp
}
