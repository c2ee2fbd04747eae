package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aircom83/ebbinghaus-english-public/internal/metrics"
	"github.com/aircom83/ebbinghaus-english-public/internal/middleware"
	"github.com/aircom83/ebbinghaus-english-public/internal/quiz"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// エントリー
	EntryService EntryServiceInterface

	// クイズ
	QuizManager     *quiz.Manager
	QuizEntrySource QuizEntrySource
	AnswerRecorder  quiz.AnswerRecorder

	// ユーザー
	UserService UserServiceInterface

	// メトリクス
	Metrics metrics.MetricsCollector
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → HTTPMetrics
//	→ Session → CSRF → RateLimit(General)
//
// 認証ルート（/auth/*）とヘルスチェックはセッション以降のチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Metrics != nil {
		r.Use(middleware.NewHTTPMetricsMiddleware(deps.Metrics.RecordHTTPStatus))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	entryHandler := NewEntryHandler(deps.EntryService)
	quizHandler := NewQuizHandler(deps.QuizManager, deps.QuizEntrySource, deps.AnswerRecorder, deps.Metrics)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// 認証ルート（ユーザー名・パスワード認証）
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// CSRFトークン取得（安全なメソッドなので検証なしで通る）
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// エントリー管理
		r.Route("/api/entries", func(r chi.Router) {
			r.Get("/", entryHandler.ListEntries)
			r.Get("/due", entryHandler.ListDueEntries)
			r.Get("/practiced-today", entryHandler.ListPracticedToday)

			// 登録系は登録専用レート制限を追加
			entryReg := deps.RateLimiter.EntryRegistrationMiddleware()
			r.With(entryReg).Post("/", entryHandler.CreateEntry)
			r.With(entryReg).Post("/bulk", entryHandler.BulkCreateEntries)
			r.With(entryReg).Post("/import", entryHandler.ImportEntries)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", entryHandler.GetEntry)
				r.Patch("/", entryHandler.UpdateEntry)
				r.Delete("/", entryHandler.DeleteEntry)

				// GET /api/entries/{id}/dictionary - 外部辞書リンク
				r.Get("/dictionary", entryHandler.DictionaryLink)
			})
		})

		// 復習テスト
		r.Route("/api/quiz/test", func(r chi.Router) {
			r.Post("/", quizHandler.StartTest)
			r.Get("/", quizHandler.GetTest)
			r.Delete("/", quizHandler.EndTest)
			r.Post("/answer", quizHandler.AnswerTest)
			r.Post("/advance", quizHandler.AdvanceTest)
			r.Post("/retry", quizHandler.RetryTest)
		})

		// 追加練習
		r.Route("/api/quiz/practice", func(r chi.Router) {
			r.Post("/", quizHandler.StartPractice)
			r.Get("/", quizHandler.GetPractice)
			r.Delete("/", quizHandler.EndPractice)
			r.Post("/answer", quizHandler.AnswerPractice)
			r.Post("/advance", quizHandler.AdvancePractice)
			r.Post("/again", quizHandler.AgainPractice)
		})

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}
