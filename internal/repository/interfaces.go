// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/aircom83/ebbinghaus-english-public/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// EntryRepository は学習エントリーの永続化インターフェース。
// 全操作がユーザーIDでスコープされ、他ユーザーのエントリーには到達できない。
type EntryRepository interface {
	// ListByUserID はユーザーの全エントリーを登録日時の昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Entry, error)

	// FindByIDAndUser は指定IDのエントリーを取得する。
	// 存在しない、または別ユーザーの所有の場合はnilを返す。
	FindByIDAndUser(ctx context.Context, id, userID string) (*model.Entry, error)

	// Create はエントリーを作成する。
	Create(ctx context.Context, entry *model.Entry) error

	// CreateBatch は複数エントリーを同一トランザクションで作成する。
	// 1件でも失敗した場合は全件ロールバックする。
	CreateBatch(ctx context.Context, entries []*model.Entry) error

	// Update はエントリーの学習状態（スケジュール、カーソル、履歴、完了フラグ）を更新する。
	Update(ctx context.Context, entry *model.Entry) error

	// UpdateTexts はエントリーの日本語・英語テキストのみを更新する。
	// 学習状態には触れない。
	UpdateTexts(ctx context.Context, id, userID, japanese, english string) error

	// Delete は指定IDのエントリーを削除する。
	// 対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id, userID string) (bool, error)

	// DeleteByUserID はユーザーの全エントリーを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}
