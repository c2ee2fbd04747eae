// Package model はドメインモデルを定義する。
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// dateLayout はDateの文字列表現フォーマット（ISO 8601の日付部分）。
const dateLayout = "2006-01-02"

// Date は時刻を持たない暦日を表す。
// スケジュール計算・期日判定はすべてこの型で行い、time.Timeの
// 時刻成分やタイムゾーンの影響を受けない。
// JSONおよびSQL境界では "YYYY-MM-DD" 形式で表現される。
type Date struct {
	t time.Time // UTC正午に正規化して保持する（DST境界での日付ずれ防止）
}

// NewDate は年・月・日からDateを生成する。
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 12, 0, 0, 0, time.UTC)}
}

// DateOf はtime.Timeからそのロケーションにおける暦日を取り出す。
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate は "YYYY-MM-DD" 形式の文字列をDateに変換する。
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// AddDays はn日後（nが負の場合はn日前）のDateを返す。
func (d Date) AddDays(n int) Date {
	return DateOf(d.t.AddDate(0, 0, n))
}

// Before はdがoより前の日付かどうかを返す。
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After はdがoより後の日付かどうかを返す。
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// Equal はdとoが同じ日付かどうかを返す。
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// IsZero はdがゼロ値かどうかを返す。
func (d Date) IsZero() bool { return d.t.IsZero() }

// Time は暦日をUTC正午のtime.Timeとして返す。SQLパラメータ変換用。
func (d Date) Time() time.Time { return d.t }

// String は "YYYY-MM-DD" 形式の文字列を返す。
func (d Date) String() string { return d.t.Format(dateLayout) }

// MarshalJSON は "YYYY-MM-DD" のJSON文字列として出力する。
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON は "YYYY-MM-DD" のJSON文字列からDateを復元する。
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value はDATE型のSQLパラメータとして扱えるよう変換する。
func (d Date) Value() (driver.Value, error) {
	return d.t, nil
}

// Scan はDATE型のカラム値からDateを復元する。
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into model.Date", src)
	}
}
