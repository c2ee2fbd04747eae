// Package clock は現在の暦日を提供するClockコラボレーターを定義する。
// コアロジックは壁時計を直接参照せず、必ずこの単一のアクセサを経由する。
// 期日判定の一貫性を保つため、全コンポーネントが同じClockを共有すること。
package clock

import (
	"time"

	"github.com/aircom83/ebbinghaus-english-public/internal/model"
)

// Clock は「今日」の暦日を返すインターフェース。
type Clock interface {
	Today() model.Date
}

// SystemClock はサーバーのローカルタイムゾーンで今日を返すClock実装。
type SystemClock struct {
	// Location が nil の場合は time.Local を使う。
	Location *time.Location
}

// Today は現在のローカル暦日を返す。
func (c SystemClock) Today() model.Date {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return model.DateOf(time.Now().In(loc))
}

// Fixed は常に同じ日付を返すClockを生成する。テスト用。
func Fixed(d model.Date) Clock {
	return fixedClock{d: d}
}

type fixedClock struct {
	d model.Date
}

func (c fixedClock) Today() model.Date { return c.d }
