// Package scheduler はエビングハウスの忘却曲線に基づく復習スケジュールの
// 計算と進行を提供する。渡されたエントリー以外の状態を持たない純粋ロジックで、
// 永続化は呼び出し側の責務とする。
package scheduler

import (
	"strings"

	"github.com/aircom83/ebbinghaus-english-public/internal/model"
)

// Intervals は登録日からの復習間隔（日数）。順序は固定で変更しない。
// 間隔は成績によって適応的に変化しない（固定スケジュール方式）。
var Intervals = [model.TierCount]int{1, 3, 7, 14, 30}

// GenerateSchedule は登録日から5回分の復習予定日を生成する。
// 戻り値は registeredOn + {1, 3, 7, 14, 30} 日をこの順で並べた配列。
func GenerateSchedule(registeredOn model.Date) [model.TierCount]model.Date {
	var schedule [model.TierCount]model.Date
	for i, days := range Intervals {
		schedule[i] = registeredOn.AddDays(days)
	}
	return schedule
}

// IsDue はエントリーが今日復習対象かどうかを判定する。
// 未完了かつ現在のtierの予定日が今日以前なら対象。
// 予定日を何日過ぎても「期限切れ」にはならず、単に復習対象のまま残る。
func IsDue(e *model.Entry, today model.Date) bool {
	if e.Completed || e.NextTierIndex >= model.TierCount {
		return false
	}
	due := e.Schedule[e.NextTierIndex]
	return !due.After(today)
}

// Matches は解答と正解を照合する。
// 前後の空白を除去したうえで大文字小文字を区別せずに完全一致を要求する。
// 部分一致・あいまい一致は認めない。
func Matches(submitted, target string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), target)
}

// AnswerResult はRecordAnswerの結果。
type AnswerResult struct {
	Correct   bool   // 正解だったか
	Completed bool   // この解答で全復習が完了したか
	Expected  string // 正解の英語（不正解時のフィードバック表示用）
}

// RecordAnswer は解答を記録し、エントリーのスケジュール状態を進める。
//
// 正解の場合: historyに正解レコードを追記し、tierカーソルを1進める。
// カーソルが5に達したらCompletedをtrueにする。
//
// 不正解の場合: historyに不正解レコードを追記し、現在のtierの予定日を
// 明日に上書きする。カーソルは進まないため、同じtierが正解するまで
// 毎回1日先送りで再出題される。他のtierの予定日は登録日基準のまま
// 再計算されない。
//
// コア内で状態を変更する操作はエントリー作成とこの関数のみ。
func RecordAnswer(e *model.Entry, submitted string, today model.Date) AnswerResult {
	correct := Matches(submitted, e.English)

	if correct {
		e.History = append(e.History, model.ReviewRecord{Date: today, Result: model.ReviewCorrect})
		e.NextTierIndex++
		if e.NextTierIndex >= model.TierCount {
			e.Completed = true
		}
	} else {
		e.History = append(e.History, model.ReviewRecord{Date: today, Result: model.ReviewIncorrect})
		e.Schedule[e.NextTierIndex] = today.AddDays(1)
	}

	return AnswerResult{
		Correct:   correct,
		Completed: e.Completed,
		Expected:  e.English,
	}
}

// NewEntryState はエントリー新規作成時のスケジュール初期状態を設定する。
// RegisteredOnを起点にScheduleを生成し、カーソルと履歴を初期化する。
func NewEntryState(e *model.Entry, registeredOn model.Date) {
	e.RegisteredOn = registeredOn
	e.Schedule = GenerateSchedule(registeredOn)
	e.NextTierIndex = 0
	e.History = nil
	e.Completed = false
}
