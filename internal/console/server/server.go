package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/clickpulse/internal/console/handler"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	unitsHandler   *handler.UnitsHandler   // /api/v1/units
	historyHandler *handler.HistoryHandler // /api/v1/history
	stream         http.HandlerFunc        // /api/v1/stream (WebSocket)
}

// NewConsoleServer инициализирует HTTP API консоли. stream может быть nil.
func NewConsoleServer(
	logger *zap.Logger,
	unitsH *handler.UnitsHandler,
	historyH *handler.HistoryHandler,
	stream http.HandlerFunc,
) *ConsoleServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ConsoleServer{
		router:         chi.NewRouter(),
		logger:         logger.Named("console-api"),
		unitsHandler:   unitsH,
		historyHandler: historyH,
		stream:         stream,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- Глобальные инфраструктурные Middleware ---
	r.Use(TracingMiddleware)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// WebSocket живёт дольше любого таймаута, поэтому вне группы с Timeout
	if s.stream != nil {
		r.Get("/api/v1/stream", s.stream)
	}

	r.Group(func(r chi.Router) {
		// Refresh ждёт завершения загрузки, но не дольше этого
		r.Use(middleware.Timeout(30 * time.Second))

		r.Route("/api/v1/units", func(r chi.Router) {
			r.Get("/", s.unitsHandler.List)
			r.Route("/{domain}", func(r chi.Router) {
				r.Get("/", s.unitsHandler.Get)
				r.Post("/refresh", s.unitsHandler.Refresh)
				r.Put("/config", s.unitsHandler.Configure)
				r.Post("/realtime", s.unitsHandler.SetRealtime)
			})
		})

		r.Route("/api/v1/history", func(r chi.Router) {
			r.Get("/", s.historyHandler.List)
			r.Get("/summary", s.historyHandler.Summary)
		})
	})
}

// requestLogger пишет access-лог через zap вместо стандартного middleware.Logger.
func (s *ConsoleServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("trace_id", TraceID(r.Context())))
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
