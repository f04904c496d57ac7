package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vestingdapp/internal/config"
	"vestingdapp/internal/hmacauth"
	"vestingdapp/internal/idempotency"
	"vestingdapp/internal/ledger"
	"vestingdapp/internal/vesting"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const headerIdempotencyKey = "X-Idempotency-Key"

type Options struct {
	Metrics *Metrics
	// RPC backs the node section of the health check when set.
	RPC    ledger.HealthChecker
	Logger *zap.Logger
	Now    func() time.Time
}

// Server exposes one vesting session over HTTP.
type Server struct {
	cfg         *config.AppConfig
	session     *vesting.Session
	store       idempotency.Store
	hmac        *hmacauth.Verifier
	metrics     *Metrics
	logger      *zap.Logger
	now         func() time.Time
	router      chi.Router
	httpServer  *http.Server
	rpcHealthFn func(context.Context) error
}

func NewServer(cfg *config.AppConfig, session *vesting.Session, store idempotency.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		cfg:     cfg,
		session: session,
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     now,
		hmac: &hmacauth.Verifier{
			Secret:  cfg.Service.HMACSecret,
			MaxSkew: cfg.Service.HMACClockSkew,
			Now:     now,
			Logger:  logger,
		},
	}
	if opts.RPC != nil {
		s.rpcHealthFn = opts.RPC.Ping
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware, s.accessLog, middleware.Recoverer)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/owner", s.handleOwner)
		r.Get("/transactions/{kind}", s.handleTransaction)
		r.Post("/vested-checks", s.handleVestedCheck)
		r.Group(func(r chi.Router) {
			r.Use(s.hmac.Middleware)
			r.Post("/schedules", s.handleCreateSchedule)
			r.Post("/claims", s.handleClaim)
		})
		r.Method(http.MethodGet, "/metrics", metrics.handler())
		r.Get("/health", s.handleHealth)
	})
	s.router = r

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Service.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	s.logger.Info("API listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.session.Status()
	acct := s.session.Account()

	resp := statusResponse{
		Message:  st.Message,
		Severity: st.Severity,
		Busy:     st.Busy,
		Account: accountView{
			Connected: acct.Connected(),
			ChainID:   acct.ChainID,
		},
		Network: s.session.Network(),
		Owner:   newOwnerView(s.session.Owner()),
		Transactions: map[string]handleView{
			vesting.KindCreateSchedule.String(): newHandleView(s.session.Transaction(vesting.KindCreateSchedule)),
			vesting.KindClaimBalance.String():   newHandleView(s.session.Transaction(vesting.KindClaimBalance)),
		},
	}
	if acct.Connected() {
		resp.Account.Address = acct.Address.Hex()
	}
	if !st.UpdatedAt.IsZero() {
		resp.UpdatedAt = &st.UpdatedAt
	}
	if q, ok := s.session.Vested(); ok {
		v := newVestedView(q)
		resp.Vested = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOwner(w http.ResponseWriter, r *http.Request) {
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		rec, err := s.session.RefreshOwner(r.Context())
		if err != nil {
			writeJSON(w, http.StatusBadGateway, newOwnerView(rec))
			return
		}
		writeJSON(w, http.StatusOK, newOwnerView(rec))
		return
	}
	writeJSON(w, http.StatusOK, newOwnerView(s.session.Owner()))
}

type vestedCheckRequest struct {
	Address string `json:"address"`
}

func (s *Server) handleVestedCheck(w http.ResponseWriter, r *http.Request) {
	var payload vestedCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json payload")
		return
	}

	q, err := s.session.CheckVested(r.Context(), payload.Address)
	if err != nil {
		s.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, newVestedView(q))
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	kind, err := vesting.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newHandleView(s.session.Transaction(kind)))
}

type scheduleRequest struct {
	Recipient string     `json:"recipient"`
	Amount    flexString `json:"amount"`
	Duration  flexString `json:"durationSeconds"`
	Cliff     flexString `json:"cliffSeconds"`
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var payload scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.metrics.incWrite("schedules", "invalid")
		writeMessage(w, http.StatusBadRequest, "invalid json payload")
		return
	}
	form := vesting.ScheduleForm{
		Recipient: payload.Recipient,
		Amount:    string(payload.Amount),
		Duration:  string(payload.Duration),
		Cliff:     string(payload.Cliff),
	}
	s.serveWrite(w, r, "schedules", vesting.KindCreateSchedule, func(ctx context.Context) (vesting.Handle, error) {
		return s.session.CreateSchedule(ctx, form)
	})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	s.serveWrite(w, r, "claims", vesting.KindClaimBalance, s.session.ClaimBalance)
}

// serveWrite runs submit once per idempotency key. Only accepted submissions
// are recorded; rejected ones can be retried under the same key.
func (s *Server) serveWrite(w http.ResponseWriter, r *http.Request, endpoint string, kind vesting.Kind, submit func(context.Context) (vesting.Handle, error)) {
	ctx := r.Context()

	var storeKey string
	if key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey)); key != "" {
		storeKey = idempotency.Key(kind.String(), s.session.Account().Address.Hex(), key)
		existing, err := s.store.Get(ctx, storeKey)
		if err != nil {
			s.logger.Warn("idempotency lookup failed", zap.String("endpoint", endpoint), zap.Error(err))
		}
		if existing != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(existing.StatusCode)
			_, _ = w.Write(existing.Body)
			s.metrics.incWrite(endpoint, "cached")
			return
		}
	}

	h, err := submit(ctx)
	if err != nil {
		s.metrics.incWrite(endpoint, "rejected")
		s.writeError(w, err, &h)
		return
	}

	view := newHandleView(h)
	body, err := json.Marshal(view)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	if storeKey != "" {
		now := s.now()
		record := idempotency.Record{
			Kind:       kind.String(),
			HandleID:   h.ID.String(),
			StatusCode: http.StatusAccepted,
			Body:       body,
			CreatedAt:  now,
			ExpiresAt:  now.Add(s.cfg.Service.IdempotencyWindow),
		}
		if err := s.store.Save(ctx, storeKey, record); err != nil {
			s.logger.Warn("idempotency save failed", zap.String("endpoint", endpoint), zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/api/v1/transactions/"+kind.String())
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write(body)
	s.metrics.incWrite(endpoint, "accepted")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overallHealthy := true

	rpcInfo := struct {
		Connected bool    `json:"connected"`
		LatencyMs float64 `json:"latency_ms"`
		Error     string  `json:"error,omitempty"`
	}{Connected: true}

	if s.rpcHealthFn != nil {
		start := time.Now()
		rpcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.rpcHealthFn(rpcCtx); err != nil {
			rpcInfo.Connected = false
			rpcInfo.Error = err.Error()
			overallHealthy = false
		} else {
			rpcInfo.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
		}
	}

	storeInfo := struct {
		Connected bool   `json:"connected"`
		Error     string `json:"error,omitempty"`
	}{Connected: true}

	storeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.store.Ping(storeCtx); err != nil {
		storeInfo.Connected = false
		storeInfo.Error = err.Error()
		overallHealthy = false
	}

	status := "healthy"
	if !overallHealthy {
		status = "degraded"
	}

	resp := struct {
		Status     string      `json:"status"`
		RPC        interface{} `json:"rpc"`
		Store      interface{} `json:"store"`
		OwnerKnown bool        `json:"owner_known"`
	}{
		Status:     status,
		RPC:        rpcInfo,
		Store:      storeInfo,
		OwnerKnown: s.session.Owner().Known,
	}

	code := http.StatusOK
	if !overallHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// statusCode maps session errors onto HTTP statuses.
func statusCode(err error) int {
	var (
		validation *vesting.ValidationError
		mismatch   *vesting.NetworkMismatchError
		submission *vesting.SubmissionError
		lookup     *vesting.LookupError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &mismatch):
		return http.StatusConflict
	case errors.Is(err, vesting.ErrNotConnected):
		return http.StatusUnauthorized
	case errors.Is(err, vesting.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, vesting.ErrInFlight):
		return http.StatusConflict
	case errors.As(err, &submission):
		return http.StatusBadGateway
	case errors.As(err, &lookup):
		if lookup.NoSchedule() {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error, h *vesting.Handle) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.Int("status", code), zap.Error(err))
	}
	resp := errorResponse{Error: vesting.UserMessage(err)}
	var validation *vesting.ValidationError
	if errors.As(err, &validation) {
		resp.Code = validation.Code.String()
		resp.Field = validation.Field
	}
	if h != nil && h.Phase != vesting.PhaseIdle {
		v := newHandleView(*h)
		resp.Transaction = &v
	}
	writeJSON(w, code, resp)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
