package quiz

import (
	"context"
	"math/rand"
	"sync"

	"github.com/aircom83/ebbinghaus-english-public/internal/model"
)

// Manager はユーザーごとのクイズセッションをプロセス内に保持する。
//
// セッションはシングルユーザー・シングルセッションのスコープで、
// 1ユーザーにつき復習テストと練習をそれぞれ高々1つずつ持つ。
// 遷移の直列化はユーザー単位で行う。同一ユーザーのイベントは1つの遷移が
// （永続化を含めて）完了してから次を受け付けるが、別ユーザーの遷移は
// 互いにブロックしない。レジストリのロックはポインタの出し入れのみの
// 短時間保持で、永続化を挟む遷移はユーザーロックの下で実行される。
// 同一ユーザーの複数タブは調停しない（後勝ち。設計上の許容事項）。
type Manager struct {
	mu       sync.Mutex // レジストリとrngを守る短時間ロック
	tests    map[string]*TestSession
	practice map[string]*PracticeSession
	locks    map[string]*sync.Mutex
	rng      *rand.Rand
}

// NewManager はManagerを生成する。seedは練習モードのシャッフルに使う。
func NewManager(seed int64) *Manager {
	return &Manager{
		tests:    make(map[string]*TestSession),
		practice: make(map[string]*PracticeSession),
		locks:    make(map[string]*sync.Mutex),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// userLock はユーザーの遷移を直列化するロックを返す。なければ作る。
func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

// currentTest は進行中の復習テストセッションのポインタを取り出す。
func (m *Manager) currentTest(userID string) (*TestSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.tests[userID]
	return s, ok
}

// currentPractice は進行中の練習セッションのポインタを取り出す。
func (m *Manager) currentPractice(userID string) (*PracticeSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.practice[userID]
	return s, ok
}

// StartTest は復習テストを開始する。既存のテストセッションは破棄される
// （破棄時の補償書き込みはない。解答済みの記録はそのまま残る）。
func (m *Manager) StartTest(userID string, due []*model.Entry) *TestSession {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s := NewTestSession(userID, due)

	m.mu.Lock()
	m.tests[userID] = s
	m.mu.Unlock()

	return s
}

// SubmitTest は進行中の復習テストに解答を送る。
// 永続化を含む遷移のため、同一ユーザーの他のイベントとだけ直列化される。
func (m *Manager) SubmitTest(ctx context.Context, userID string, recorder AnswerRecorder, submitted string) (Feedback, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s, ok := m.currentTest(userID)
	if !ok {
		return Feedback{}, model.NewNoQuizSessionError()
	}
	return s.Submit(ctx, recorder, submitted)
}

// AdvanceTest は進行中の復習テストを次の問題へ進める。
func (m *Manager) AdvanceTest(userID string) error {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s, ok := m.currentTest(userID)
	if !ok {
		return model.NewNoQuizSessionError()
	}
	return s.Advance()
}

// RetryTest は不正解分の再テストラウンドを開始する。
func (m *Manager) RetryTest(userID string) error {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s, ok := m.currentTest(userID)
	if !ok {
		return model.NewNoQuizSessionError()
	}
	return s.Retry()
}

// Test は進行中の復習テストセッションを返す。
func (m *Manager) Test(userID string) (*TestSession, bool) {
	return m.currentTest(userID)
}

// EndTest は復習テストセッションを破棄する（中断）。
// 解答済みの記録はエントリーごとに保存済みのため巻き戻さない。
// レジストリロックのみで完了するため、進行中の遷移を待たない。
func (m *Manager) EndTest(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tests, userID)
}

// StartPractice は追加練習セッションを開始する。既存の練習は破棄される。
func (m *Manager) StartPractice(userID string, entries []*model.Entry) *PracticeSession {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	// セッション専用のrngを切り出す。共有rngはレジストリロック下でのみ触る。
	m.mu.Lock()
	seed := m.rng.Int63()
	m.mu.Unlock()

	s := NewPracticeSession(entries, rand.New(rand.NewSource(seed)))

	m.mu.Lock()
	m.practice[userID] = s
	m.mu.Unlock()

	return s
}

// SubmitPractice は進行中の練習に解答を送る。
func (m *Manager) SubmitPractice(userID, submitted string) (Feedback, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s, ok := m.currentPractice(userID)
	if !ok {
		return Feedback{}, model.NewNoQuizSessionError()
	}
	return s.Submit(submitted)
}

// AdvancePractice は進行中の練習を次の問題へ進める。
func (m *Manager) AdvancePractice(userID string) error {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s, ok := m.currentPractice(userID)
	if !ok {
		return model.NewNoQuizSessionError()
	}
	return s.Advance()
}

// ReshufflePractice は同じ出題対象で練習をもう1周始める。
func (m *Manager) ReshufflePractice(userID string) error {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s, ok := m.currentPractice(userID)
	if !ok {
		return model.NewNoQuizSessionError()
	}
	return s.Reshuffle()
}

// Practice は進行中の練習セッションを返す。
func (m *Manager) Practice(userID string) (*PracticeSession, bool) {
	return m.currentPractice(userID)
}

// EndPractice は練習セッションを破棄する。
func (m *Manager) EndPractice(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.practice, userID)
}

// Clear はユーザーの全セッションとロックを破棄する。退会時に呼ばれる。
func (m *Manager) Clear(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tests, userID)
	delete(m.practice, userID)
	delete(m.locks, userID)
}
