package http

import (
	"context"
	"contribution-ledger/internal/app"
	"contribution-ledger/internal/ports/http/middleware"
	"contribution-ledger/internal/ports/http/middleware/cors"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Options configure the HTTP server.
type Options struct {
	RequestTimeout time.Duration
	RateLimit      float64
	RateBurst      int
}

type Server struct {
	app        *app.App
	httpServer *http.Server
	limiter    *middleware.RateLimiter
	addr       string
	opts       Options
	logger     *zap.Logger
}

func NewServer(logger *zap.Logger, a *app.App, address string, opts Options) *Server {
	ser := &Server{
		app:     a,
		addr:    address,
		opts:    opts,
		logger:  logger,
		limiter: middleware.NewRateLimiter(opts.RateLimit, opts.RateBurst),
	}
	ser.httpServer = &http.Server{
		Handler:           ser.Handler(),
		Addr:              address,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ser
}

type errorResponse struct {
	Error string `json:"error"`
}

func (ser *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	response, err := json.Marshal(v)
	if err != nil {
		ser.logger.Error("marshalling the response failed: " + err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		ser.logger.Error("failed to write the response: " + err.Error())
	}
}

func (ser *Server) badRequest(w http.ResponseWriter, message string) {
	ser.writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
	ser.logger.Warn(message)
}

func (ser *Server) serverError(w http.ResponseWriter, message string) {
	ser.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: message})
	ser.logger.Error(message)
}

// fail maps err to its status code and writes it.
func (ser *Server) fail(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		ser.serverError(w, err.Error())
		return
	}
	ser.writeJSON(w, status, errorResponse{Error: err.Error()})
	ser.logger.Debug("request failed", zap.Int("status", status), zap.Error(err))
}

func (ser *Server) registerHandlers(router *mux.Router) {

	router.HandleFunc("/health", healthcheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/transactions", ser.postTransaction).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{address}", ser.getAccount).Methods(http.MethodGet)
	api.HandleFunc("/allowances/{owner}/{spender}", ser.getAllowance).Methods(http.MethodGet)
	api.HandleFunc("/supply", ser.getSupply).Methods(http.MethodGet)
	api.HandleFunc("/integrity", ser.getIntegrity).Methods(http.MethodGet)
	api.HandleFunc("/contributors", ser.getContributors).Methods(http.MethodGet)
	api.HandleFunc("/contributors/{address}", ser.getContributor).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", ser.getLeaderboard).Methods(http.MethodGet)
	api.HandleFunc("/proposals/{id:[0-9]+}", ser.getProposal).Methods(http.MethodGet)
	api.HandleFunc("/rewards/preview", ser.getRewardsPreview).Methods(http.MethodGet)
	api.HandleFunc("/events", ser.getEvents).Methods(http.MethodGet)

}

func healthcheck(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("all good here"))
}

// Handler returns the router wrapped in the CORS and rate limiting middleware.
func (ser *Server) Handler() http.Handler {
	router := mux.NewRouter()
	ser.registerHandlers(router)
	return cors.AddCorsPolicy(ser.limiter.Middleware(router))
}

func (ser *Server) Run() error {
	ser.logger.Info("listening on " + ser.addr)
	err := ser.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for the running ones.
func (ser *Server) Shutdown(ctx context.Context) error {
	ser.limiter.Stop()
	return ser.httpServer.Shutdown(ctx)
}
