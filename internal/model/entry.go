// Package model はドメインモデルを定義する。
package model

import "time"

// TierCount は1エントリーあたりの復習回数。
// 登録日から {1, 3, 7, 14, 30} 日後の計5回テストされる。
const TierCount = 5

// ReviewResult は1回の解答の結果（正解/不正解）を表す。
type ReviewResult string

const (
	// ReviewCorrect は正解を表す。
	ReviewCorrect ReviewResult = "correct"
	// ReviewIncorrect は不正解を表す。
	ReviewIncorrect ReviewResult = "incorrect"
)

// ReviewRecord は1回の解答の記録。historyに追記専用で蓄積される。
type ReviewRecord struct {
	Date   Date         `json:"date"`
	Result ReviewResult `json:"result"`
}

// Entry は学習対象の日本語・英語ペアを表す。
//
// Scheduleは常に長さ5で、各要素が復習チェックポイント（tier）の予定日。
// NextTierIndexは次に出題されるtierへのカーソルで、0..5の範囲を
// 単調増加し、5に達した時点でCompletedがtrueになる（両者は常に一致する）。
// 不正解のtierは予定日だけが翌日に押し出され、カーソルは進まない。
type Entry struct {
	ID            string
	UserID        string
	Japanese      string
	English       string
	RegisteredOn  Date
	Schedule      [TierCount]Date
	NextTierIndex int
	History       []ReviewRecord
	Completed     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EntryStatus はエントリー一覧表示用の学習状態を表す。
type EntryStatus string

const (
	// EntryStatusDue は現在のtierの予定日が到来している状態。
	EntryStatusDue EntryStatus = "due"
	// EntryStatusLearning は次の予定日が未到来の学習中状態。
	EntryStatusLearning EntryStatus = "learning"
	// EntryStatusCompleted は5回の復習をすべてクリアした状態。
	EntryStatusCompleted EntryStatus = "completed"
)

// NextReviewOn は次に出題されるtierの予定日を返す。
// 完了済みの場合は2番目の戻り値がfalseになる。
func (e *Entry) NextReviewOn() (Date, bool) {
	if e.Completed || e.NextTierIndex >= TierCount {
		return Date{}, false
	}
	return e.Schedule[e.NextTierIndex], true
}

// PracticedOn は指定日に1回以上解答した履歴があるかどうかを返す。
// 練習モードの出題対象判定に使う。
func (e *Entry) PracticedOn(day Date) bool {
	for _, rec := range e.History {
		if rec.Date.Equal(day) {
			return true
		}
	}
	return false
}
