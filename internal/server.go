package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/nudge/internal/api"
	"github.com/kazz187/nudge/internal/config"
	"github.com/kazz187/nudge/pkg/cerr"
	"github.com/kazz187/nudge/pkg/clog"
)

// Stats is what /api/status reports.
type Stats interface {
	Active() int
}

type Server struct {
	server         *http.Server
	env            *config.Env
	webhook        http.Handler
	reminderServer api.ReminderServiceHandler
	pushServer     api.PushNotificationServiceHandler
	stats          Stats
}

// NewServer wires the HTTP surface. webhook and pushServer may be nil when
// their channel is not configured. The Connect services are mounted only when
// an API key is set.
func NewServer(
	env *config.Env,
	webhook http.Handler,
	reminderServer api.ReminderServiceHandler,
	pushServer api.PushNotificationServiceHandler,
	stats Stats,
) *Server {
	return &Server{
		env:            env,
		webhook:        webhook,
		reminderServer: reminderServer,
		pushServer:     pushServer,
		stats:          stats,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/{$}", &HealthChecker{})

	if s.webhook != nil {
		wr := chi.NewRouter()
		wr.Use(clog.SlogChiMiddleware())
		wr.Post(s.env.WebhookPath, s.webhook.ServeHTTP)
		mux.Handle(s.env.WebhookPath, wr)
	}

	if s.env.APIKey == "" {
		slog.Warn("API key not set, Connect API disabled")
		return h2c.NewHandler(mux, &http2.Server{})
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
		)
		r.Get("/status", s.status)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})
	mux.Handle("/api/", r)

	services := []string{api.ReminderServiceName}
	handlerOpts := connect.WithInterceptors(s.interceptors()...)
	mux.Handle(api.NewReminderServiceHandler(s.reminderServer, handlerOpts))
	if s.pushServer != nil {
		mux.Handle(api.NewPushNotificationServiceHandler(s.pushServer, handlerOpts))
		services = append(services, api.PushServiceName)
	}
	mux.Handle(grpchealth.NewHandler(grpchealth.NewStaticChecker(services...)))

	return h2c.NewHandler(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{})
}

// ListenAndServe uses ctx as the base context of every request, so
// cancelling it reaches in-flight handlers too.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type statusResponse struct {
	Status          string `json:"status"`
	ActiveReminders int    `json:"active_reminders"`
	Timezone        string `json:"timezone"`
	Interval        string `json:"escalation_interval"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:   "ok",
		Timezone: s.env.Timezone,
		Interval: s.env.EscalationInterval.String(),
	}
	if s.stats != nil {
		resp.ActiveReminders = s.stats.Active()
	}
	cerr.SetJSONResponse(r.Context(), resp)
}

func (s *Server) interceptors() []connect.Interceptor {
	return []connect.Interceptor{
		clog.NewSlogConnectUnaryInterceptor(clog.WithConnectFilter(clog.DefaultConnectHealthCheckUnaryFilter)),
		cerr.NewConvertConnectErrorInterceptor(),
	}
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The webhook authenticates with its own signature.
		switch r.URL.Path {
		case "/", "/health", "/grpc.health.v1.Health/Check", s.env.WebhookPath:
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if apiKey != s.env.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
