// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aircom83/ebbinghaus-english-public/internal/model"
	"github.com/aircom83/ebbinghaus-english-public/internal/repository"
)

// EntryDeleter は学習エントリーの一括削除インターフェース。
type EntryDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// QuizClearer は進行中クイズセッションの破棄インターフェース。
type QuizClearer interface {
	Clear(userID string)
}

// Service はユーザー管理のサービス層。
// 退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	entryDeleter EntryDeleter
	quizClearer  QuizClearer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	entryDeleter EntryDeleter,
	quizClearer QuizClearer,
) *Service {
	return &Service{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		entryDeleter: entryDeleter,
		quizClearer:  quizClearer,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: 進行中クイズ → entries → sessions → user
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. 進行中のクイズセッションを破棄
	if s.quizClearer != nil {
		s.quizClearer.Clear(userID)
	}

	// 2. 学習エントリーを削除
	if s.entryDeleter != nil {
		if err := s.entryDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("学習エントリーの削除に失敗しました: %w", err)
		}
	}

	// 3. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 4. ユーザーを削除
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
