// Package quiz は復習テストと追加練習のセッション状態機械を提供する。
// 状態機械は呼び出し側（HTTP層のManager）が保持する明示的なオブジェクトで、
// プロセス全体のシングルトンは持たない。各遷移は1つの外部イベントで駆動され、
// 永続化を含めて完了してから次のイベントを受け付ける。
package quiz

import (
	"context"
	"strings"

	"github.com/aircom83/ebbinghaus-english-public/internal/model"
	"github.com/aircom83/ebbinghaus-english-public/internal/scheduler"
)

// State はセッション状態機械の状態を表す。
type State string

const (
	// StateAwaitingAnswer は現在の問題への解答待ち。
	StateAwaitingAnswer State = "awaiting_answer"
	// StateFeedback は直前の解答の正誤表示中。advanceで次へ進む。
	StateFeedback State = "feedback"
	// StateRoundResult はラウンド終了・不正解あり。retryで再テストへ。
	StateRoundResult State = "round_result"
	// StateFinalResult は全問正解で終了した最終状態。
	StateFinalResult State = "final_result"
	// StateEmpty は開始時点で出題対象が空だった最終状態。
	StateEmpty State = "empty"
)

// AnswerRecorder は解答の永続的な記録を行うコラボレーター。
// Schedulerによる状態更新とストレージへの保存を1回の呼び出しで完了する。
type AnswerRecorder interface {
	RecordAnswer(ctx context.Context, userID, entryID, submitted string) (*scheduler.AnswerResult, error)
}

// Feedback は直前の解答に対するフィードバック。
type Feedback struct {
	Correct   bool   // 正解だったか
	Expected  string // 正解の英語
	Completed bool   // この解答でエントリーの全復習が完了したか
}

// Question は出題中の問題。
type Question struct {
	EntryID  string
	Japanese string
}

// TestSession は復習テストの状態機械。
//
// 元の復習対象のすべてのエントリーが1回ずつ正解されるまで、
// 不正解のエントリーだけを集めたラウンドを繰り返す。
// 1つのセッションは1ユーザーに属し、呼び出しはManagerが直列化する。
type TestSession struct {
	userID    string
	queue     []*model.Entry // 現在のラウンドの出題キュー
	pos       int
	round     int
	correct   int // 全ラウンド通算の正解数
	tested    int // 全ラウンド通算の解答数
	total     int // 元の復習対象数
	incorrect []*model.Entry // このラウンドで不正解だったエントリー
	state     State
	feedback  Feedback
}

// NewTestSession は復習対象のエントリー集合から復習テストを開始する。
// 対象が空の場合は状態機械に入らず、StateEmptyの最終状態で返す。
func NewTestSession(userID string, due []*model.Entry) *TestSession {
	s := &TestSession{
		userID: userID,
		total:  len(due),
		round:  1,
	}
	if len(due) == 0 {
		s.state = StateEmpty
		return s
	}
	s.queue = due
	s.state = StateAwaitingAnswer
	return s
}

// State は現在の状態を返す。
func (s *TestSession) State() State { return s.state }

// Round は現在のラウンド番号（1始まり）を返す。
func (s *TestSession) Round() int { return s.round }

// Position は現在のラウンド内での出題位置（0始まり）を返す。
func (s *TestSession) Position() int { return s.pos }

// QueueSize は現在のラウンドの出題数を返す。
func (s *TestSession) QueueSize() int { return len(s.queue) }

// Total は元の復習対象数を返す。
func (s *TestSession) Total() int { return s.total }

// Correct は通算正解数を返す。
func (s *TestSession) Correct() int { return s.correct }

// Tested は通算解答数を返す。ラウンドをまたぐため復習対象数を超えうる。
func (s *TestSession) Tested() int { return s.tested }

// IncorrectCount はこのラウンドでの不正解数を返す。
func (s *TestSession) IncorrectCount() int { return len(s.incorrect) }

// Current は出題中の問題を返す。解答待ちまたはフィードバック中のみ有効。
func (s *TestSession) Current() (Question, bool) {
	if s.state != StateAwaitingAnswer && s.state != StateFeedback {
		return Question{}, false
	}
	e := s.queue[s.pos]
	return Question{EntryID: e.ID, Japanese: e.Japanese}, true
}

// LastFeedback は直前の解答のフィードバックを返す。StateFeedback中のみ有効。
func (s *TestSession) LastFeedback() (Feedback, bool) {
	if s.state != StateFeedback {
		return Feedback{}, false
	}
	return s.feedback, true
}

// Submit は現在の問題への解答を処理する。
//
// 解答はrecorderを通じて永続化され、その呼び出しが失敗した場合は
// セッション状態（位置・ラウンド・カウンタ）を一切進めずにエラーを返す。
// 呼び出し側は同じ問題に対して再試行できる。
// 空の解答はSchedulerに到達する前に拒否する。
func (s *TestSession) Submit(ctx context.Context, recorder AnswerRecorder, submitted string) (Feedback, error) {
	if s.state != StateAwaitingAnswer {
		return Feedback{}, model.NewInvalidTransitionError("submit")
	}
	if strings.TrimSpace(submitted) == "" {
		return Feedback{}, model.NewEmptyAnswerError()
	}

	entry := s.queue[s.pos]
	result, err := recorder.RecordAnswer(ctx, s.userID, entry.ID, submitted)
	if err != nil {
		return Feedback{}, err
	}

	s.tested++
	if result.Correct {
		s.correct++
	} else {
		s.incorrect = append(s.incorrect, entry)
	}
	s.feedback = Feedback{
		Correct:   result.Correct,
		Expected:  result.Expected,
		Completed: result.Completed,
	}
	s.state = StateFeedback
	return s.feedback, nil
}

// Advance はフィードバック確認後に次の問題へ進む。
// ラウンド末尾では、不正解がなければFinalResult、あればRoundResultへ遷移する。
func (s *TestSession) Advance() error {
	if s.state != StateFeedback {
		return model.NewInvalidTransitionError("advance")
	}

	s.pos++
	if s.pos < len(s.queue) {
		s.state = StateAwaitingAnswer
		return nil
	}

	if len(s.incorrect) == 0 {
		s.state = StateFinalResult
		return nil
	}
	s.state = StateRoundResult
	return nil
}

// Retry は不正解だったエントリーだけで次のラウンドを開始する。
func (s *TestSession) Retry() error {
	if s.state != StateRoundResult {
		return model.NewInvalidTransitionError("retry")
	}

	s.queue = s.incorrect
	s.incorrect = nil
	s.pos = 0
	s.round++
	s.state = StateAwaitingAnswer
	return nil
}
