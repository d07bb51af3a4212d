package api

import (
	"filezone/internal/accounts"
	"filezone/internal/config"
	"filezone/internal/tree"
	"filezone/internal/websocket"
	"net/http"

	_ "filezone/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

type Server struct {
	config   *config.Config
	tree     *tree.Service
	accounts *accounts.Service
	wsHub    *websocket.Hub
	logger   *zap.Logger
}

func NewServer(cfg *config.Config, treeService *tree.Service, accountService *accounts.Service, wsHub *websocket.Hub, logger *zap.Logger) *Server {
	return &Server{
		config:   cfg,
		tree:     treeService,
		accounts: accountService,
		wsHub:    wsHub,
		logger:   logger.With(zap.String("component", "api")),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.HTTP.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Get("/ws", s.ServeWsHandler)
	r.Get("/health", s.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/v1/auth/sign-up", s.SignUpHandler)
	r.Post("/api/v1/auth/login", s.LoginHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.AuthMiddleware)
		r.Get("/me", s.GetCurrentUserHandler)
		r.Get("/tree", s.GetTreeHandler)
		r.Get("/nodes/{nodeId}", s.GetSubtreeHandler)
		r.Post("/nodes/{nodeId}/folders", s.CreateFolderHandler)
		r.Post("/nodes/{nodeId}/files", s.UploadFileHandler)
		r.Get("/nodes/{nodeId}/content", s.DownloadFileHandler)
		r.Delete("/nodes/{nodeId}", s.DeleteNodeHandler)
	})

	return r
}

// @Summary      Health check
// @Tags         health
// @Produce      plain
// @Success      200  {string}  string "ok"
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
