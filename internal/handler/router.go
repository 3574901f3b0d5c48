package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/tourbase/internal/metrics"
	"github.com/hitoshi/tourbase/internal/middleware"
	"github.com/hitoshi/tourbase/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.Authenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// サービス
	AuthService   AuthService
	TourService   TourService
	UserService   UserService
	ReviewService ReviewService

	// 監視
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer

	Logger *slog.Logger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → RateLimit(General)
//
// 認証系エンドポイント（signup、login、forgotPassword、resetPassword）には
// 総当たり対策として専用のレート制限を追加で適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Collector))
	r.Use(deps.RateLimiter.GeneralMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.Collector, deps.Logger)
	tourHandler := NewTourHandler(deps.TourService, deps.Logger)
	userHandler := NewUserHandler(deps.UserService, deps.Logger)
	reviewHandler := NewReviewHandler(deps.ReviewService, deps.Logger)

	protect := middleware.NewProtectMiddleware(deps.Authenticator)
	adminOnly := middleware.NewRestrictToMiddleware(model.RoleAdmin)
	staffOnly := middleware.NewRestrictToMiddleware(model.RoleAdmin, model.RoleLeadGuide)
	reviewAuthors := middleware.NewRestrictToMiddleware(model.RoleUser)
	authLimit := deps.RateLimiter.AuthMiddleware()

	// ヘルスチェックとメトリクス
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeSuccessResponse(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	r.Route("/api/v1", func(r chi.Router) {
		// アカウント・認証
		r.Route("/users", func(r chi.Router) {
			// 認証不要（認証系レート制限つき）
			r.With(authLimit).Post("/signup", authHandler.Signup)
			r.With(authLimit).Post("/login", authHandler.Login)
			r.With(authLimit).Post("/forgotPassword", authHandler.ForgotPassword)
			r.With(authLimit).Patch("/resetPassword/{token}", authHandler.ResetPassword)

			// 要認証
			r.Group(func(r chi.Router) {
				r.Use(protect)

				r.Patch("/updateMyPassword", authHandler.UpdateMyPassword)
				r.Get("/me", userHandler.Me)
				r.Patch("/updateMe", userHandler.UpdateMe)
				r.Delete("/deleteMe", userHandler.DeleteMe)

				// 管理者専用のアカウントCRUD
				r.Group(func(r chi.Router) {
					r.Use(adminOnly)

					r.Get("/", userHandler.List)
					r.Route("/{userId}", func(r chi.Router) {
						r.Get("/", userHandler.Get)
						r.Patch("/", userHandler.Update)
						r.Delete("/", userHandler.Delete)
					})
				})
			})
		})

		// ツアー
		r.Route("/tours", func(r chi.Router) {
			// 参照系は認証不要
			r.Get("/", tourHandler.List)
			r.Get("/top-5-tours", tourHandler.ListTopRated)
			r.Get("/tour-stats", tourHandler.Stats)

			r.With(protect, staffOnly).Post("/", tourHandler.Create)

			r.Route("/{tourId}", func(r chi.Router) {
				r.Get("/", tourHandler.Get)
				r.With(protect, staffOnly).Patch("/", tourHandler.Update)
				r.With(protect, staffOnly).Delete("/", tourHandler.Delete)

				// ネストされたレビュールート
				r.Get("/reviews", reviewHandler.List)
				r.With(protect, reviewAuthors).Post("/reviews", reviewHandler.Create)
			})
		})

		// レビュー
		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", reviewHandler.List)
			r.Get("/{reviewId}", reviewHandler.Get)
			r.With(protect, reviewAuthors).Post("/", reviewHandler.Create)
			r.With(protect, staffOnly).Delete("/{reviewId}", reviewHandler.Delete)
		})
	})

	// 未定義ルートは統一フォーマットの404を返す
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewRouteNotFoundError(r.URL.Path))
	})

	return r
}
