package quiz

import (
	"math/rand"
	"strings"

	"github.com/aircom83/ebbinghaus-english-public/internal/model"
	"github.com/aircom83/ebbinghaus-english-public/internal/scheduler"
)

// MissedPair は練習で不正解だった日本語・英語ペア。結果表示用。
type MissedPair struct {
	EntryID  string
	Japanese string
	English  string
}

// PracticeResult は追加練習1周分の結果。
type PracticeResult struct {
	Total   int
	Correct int
	Percent int // 正解率（四捨五入した整数パーセント）
	Missed  []MissedPair
}

// PracticeSession は追加練習（記録なし）の状態機械。
//
// 今日解答済みのエントリーをシャッフルして1周だけ出題する。
// 正誤判定は復習テストと同じ照合ルールをローカルに適用するだけで、
// Schedulerの状態更新も永続化も一切行わない。ラウンドの繰り返しはなく、
// 結果表示後に再シャッフルしてもう1周できる。
type PracticeSession struct {
	items    []*model.Entry // シャッフル済みの出題順
	pos      int
	correct  int
	missed   []*model.Entry
	state    State
	feedback Feedback
	rng      *rand.Rand
}

// NewPracticeSession は出題対象をシャッフルして練習セッションを開始する。
// 対象が空の場合はStateEmptyの最終状態で返す。
func NewPracticeSession(entries []*model.Entry, rng *rand.Rand) *PracticeSession {
	s := &PracticeSession{rng: rng}
	if len(entries) == 0 {
		s.state = StateEmpty
		return s
	}
	s.items = make([]*model.Entry, len(entries))
	copy(s.items, entries)
	s.shuffle()
	s.state = StateAwaitingAnswer
	return s
}

// shuffle は出題順をランダムに並べ替える。
func (s *PracticeSession) shuffle() {
	s.rng.Shuffle(len(s.items), func(i, j int) {
		s.items[i], s.items[j] = s.items[j], s.items[i]
	})
}

// State は現在の状態を返す。
func (s *PracticeSession) State() State { return s.state }

// Position は現在の出題位置（0始まり）を返す。
func (s *PracticeSession) Position() int { return s.pos }

// Total は出題数を返す。
func (s *PracticeSession) Total() int { return len(s.items) }

// Current は出題中の問題を返す。解答待ちまたはフィードバック中のみ有効。
func (s *PracticeSession) Current() (Question, bool) {
	if s.state != StateAwaitingAnswer && s.state != StateFeedback {
		return Question{}, false
	}
	e := s.items[s.pos]
	return Question{EntryID: e.ID, Japanese: e.Japanese}, true
}

// LastFeedback は直前の解答のフィードバックを返す。StateFeedback中のみ有効。
func (s *PracticeSession) LastFeedback() (Feedback, bool) {
	if s.state != StateFeedback {
		return Feedback{}, false
	}
	return s.feedback, true
}

// Submit は現在の問題への解答をローカルに判定する。永続化は行わない。
func (s *PracticeSession) Submit(submitted string) (Feedback, error) {
	if s.state != StateAwaitingAnswer {
		return Feedback{}, model.NewInvalidTransitionError("submit")
	}
	if strings.TrimSpace(submitted) == "" {
		return Feedback{}, model.NewEmptyAnswerError()
	}

	entry := s.items[s.pos]
	correct := scheduler.Matches(submitted, entry.English)
	if correct {
		s.correct++
	} else {
		s.missed = append(s.missed, entry)
	}
	s.feedback = Feedback{Correct: correct, Expected: entry.English}
	s.state = StateFeedback
	return s.feedback, nil
}

// Advance はフィードバック確認後に次の問題へ進む。
// 最後の問題の後はFinalResult（練習結果表示）へ遷移する。
func (s *PracticeSession) Advance() error {
	if s.state != StateFeedback {
		return model.NewInvalidTransitionError("advance")
	}

	s.pos++
	if s.pos < len(s.items) {
		s.state = StateAwaitingAnswer
		return nil
	}
	s.state = StateFinalResult
	return nil
}

// Result は練習結果を返す。StateFinalResult中のみ有効。
func (s *PracticeSession) Result() (PracticeResult, bool) {
	if s.state != StateFinalResult {
		return PracticeResult{}, false
	}

	total := len(s.items)
	percent := 0
	if total > 0 {
		percent = (s.correct*100 + total/2) / total
	}

	missed := make([]MissedPair, len(s.missed))
	for i, e := range s.missed {
		missed[i] = MissedPair{EntryID: e.ID, Japanese: e.Japanese, English: e.English}
	}

	return PracticeResult{
		Total:   total,
		Correct: s.correct,
		Percent: percent,
		Missed:  missed,
	}, true
}

// Reshuffle は同じ出題対象で再シャッフルしてもう1周始める。
// 結果表示後のみ有効。
func (s *PracticeSession) Reshuffle() error {
	if s.state != StateFinalResult {
		return model.NewInvalidTransitionError("reshuffle")
	}

	s.pos = 0
	s.correct = 0
	s.missed = nil
	s.shuffle()
	s.state = StateAwaitingAnswer
	return nil
}
