package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrostake/aic/internal/datafetcher"
	"github.com/agrostake/aic/internal/gateway"
	"github.com/agrostake/aic/internal/lifecycle"
	"github.com/agrostake/aic/internal/logger"
	"github.com/agrostake/aic/internal/reconcile"
	"github.com/agrostake/aic/internal/txbuilder"
	"github.com/agrostake/aic/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// Deps are the collaborators the HTTP API exposes. The server itself holds no
// business logic; it translates intents into lifecycle calls and renders the
// controllers' derived state.
type Deps struct {
	Pools      datafetcher.PoolSource
	Gateway    gateway.SignerGateway
	Builder    *txbuilder.Builder
	Reconciler *reconcile.Reconciler
	Poller     *gateway.BalancePoller

	Network            types.Network
	Scheduler          lifecycle.Scheduler
	SuccessNotifyDelay time.Duration
	ProcessingTimeout  time.Duration
}

// WebServer handles HTTP requests for the investment dashboard API.
type WebServer struct {
	router *mux.Router
	port   string
	deps   Deps

	mu       sync.Mutex
	sessions map[string]*lifecycle.Controller

	startedAt time.Time
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, deps Deps) *WebServer {
	if port == "" {
		port = "8080"
	}
	if deps.Scheduler == nil {
		deps.Scheduler = lifecycle.TimerScheduler{}
	}

	server := &WebServer{
		router:    mux.NewRouter(),
		port:      port,
		deps:      deps,
		sessions:  make(map[string]*lifecycle.Controller),
		startedAt: time.Now(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// Prometheus metrics
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/pools", ws.handleGetPools).Methods("GET")
	api.HandleFunc("/pools/{id}", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/actions", ws.handleAction).Methods("POST")
	api.HandleFunc("/balance", ws.handleGetBalance).Methods("GET")
	api.HandleFunc("/returns", ws.handleGetReturns).Methods("GET")
	api.HandleFunc("/invest", ws.handleInvestSubmit).Methods("POST")
	api.HandleFunc("/invest/confirm", ws.handleInvestConfirm).Methods("POST")
	api.HandleFunc("/invest/back", ws.handleInvestBack).Methods("POST")
	api.HandleFunc("/invest/reset", ws.handleInvestReset).Methods("POST")
	api.HandleFunc("/invest/status", ws.handleInvestStatus).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// Router exposes the handler tree, used by tests.
func (ws *WebServer) Router() http.Handler {
	return ws.router
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	pools, _, poolsErr := ws.deps.Pools.ListPools()

	overallStatus := "OK"
	statusCode := http.StatusOK
	if poolsErr != nil {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.startedAt).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "aic-investment-core",
			"version": "1.0.0",
		},
		"aic_status": map[string]interface{}{
			"wallet_connected": ws.deps.Gateway.IsConnected(),
			"wallet_address":   ws.deps.Gateway.Address(),
			"pool_count":       len(pools),
			"open_sessions":    ws.sessionCount(),
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

func (ws *WebServer) sessionCount() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.sessions)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response with a stable machine code
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	response := map[string]interface{}{
		"error":     true,
		"code":      code,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
