package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"liqrun/internal/config"
	"liqrun/internal/ledger"
	"liqrun/internal/session"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Ledger is the read side the profile endpoints need.
type Ledger interface {
	Chains() []ledger.Chain
	Profile(ctx context.Context, chainID uint64, player common.Address) (ledger.Profile, error)
}

type Server struct {
	cfg      config.APIConfig
	log      *slog.Logger
	sessions *session.Service
	ledger   Ledger
	metrics  *metrics
	mux      *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, sessions *session.Service, ledgerClient Ledger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		log:      logger,
		sessions: sessions,
		ledger:   ledgerClient,
		metrics:  newMetrics(),
		mux:      chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/game/start", s.handleStart)
		r.Post("/game/heartbeat", s.handleHeartbeat)
		r.Post("/game/finish", s.handleFinish)

		r.Get("/ledger/chains", s.handleChains)
		r.Get("/ledger/{chainId}/players/{address}", s.handleProfile)
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var in startRequest
	err := decodeRequest(r, &in)
	var res session.StartResult
	if err == nil {
		res, err = s.sessions.Start(r.Context(), in.input())
	}
	s.metrics.observe("start", started, err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var in heartbeatRequest
	err := decodeRequest(r, &in)
	var res session.HeartbeatResult
	if err == nil {
		res, err = s.sessions.Heartbeat(r.Context(), in.Token)
	}
	s.metrics.observe("heartbeat", started, err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var in finishRequest
	err := decodeRequest(r, &in)
	var res session.FinishResult
	if err == nil {
		res, err = s.sessions.Finish(r.Context(), in.input())
	}
	s.metrics.observe("finish", started, err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if res.Signed() {
		s.metrics.signed.Inc()
	} else {
		s.metrics.unsigned.Inc()
	}
	writeJSON(w, http.StatusOK, res)
}

type chainView struct {
	ledger.Chain
	Configured bool `json:"configured"`
}

func (s *Server) handleChains(w http.ResponseWriter, _ *http.Request) {
	if s.ledger == nil {
		writeJSON(w, http.StatusOK, map[string]any{"chains": []chainView{}})
		return
	}
	chains := s.ledger.Chains()
	out := make([]chainView, 0, len(chains))
	for _, c := range chains {
		out = append(out, chainView{Chain: c, Configured: c.Configured()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"chains": out})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	chainID, err := strconv.ParseUint(chi.URLParam(r, "chainId"), 10, 64)
	if err != nil || chainID == 0 {
		writeError(w, http.StatusBadRequest, "chainId must be a positive integer")
		return
	}
	player, err := session.NormalizePlayer(chi.URLParam(r, "address"))
	if err != nil || player == "" {
		writeError(w, http.StatusBadRequest, session.ErrInvalidPlayer.Error())
		return
	}
	if s.ledger == nil {
		writeError(w, http.StatusNotFound, ledger.ErrUnknownChain.Error())
		return
	}
	profile, err := s.ledger.Profile(r.Context(), chainID, common.HexToAddress(player))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// errorClass names the error family; it is both the metrics outcome label
// and the basis of the status mapping.
func errorClass(err error) string {
	switch {
	case errors.Is(err, errMalformedRequest), errors.Is(err, session.ErrInvalidPlayer):
		return "malformed_request"
	case errors.Is(err, session.ErrInvalidToken),
		errors.Is(err, session.ErrTamperedToken),
		errors.Is(err, session.ErrUnsupportedVersion):
		return "invalid_session"
	case errors.Is(err, session.ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, session.ErrPlayerMismatch):
		return "player_mismatch"
	case errors.Is(err, session.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, session.ErrNotConfigured):
		return "configuration_error"
	case errors.Is(err, ledger.ErrUnknownChain), errors.Is(err, ledger.ErrChainNotConfigured):
		return "unknown_chain"
	default:
		return "internal"
	}
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	class := errorClass(err)
	switch class {
	case "malformed_request", "invalid_session", "session_expired", "player_mismatch", "upstream_unavailable":
		writeError(w, http.StatusBadRequest, err.Error())
	case "unknown_chain":
		writeError(w, http.StatusNotFound, err.Error())
	case "configuration_error":
		s.log.Error("request failed", "path", r.URL.Path, "class", class, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.log.Error("request failed", "path", r.URL.Path, "class", class, "err", err,
			"request_id", middleware.GetReqID(r.Context()))
		if strings.HasPrefix(r.URL.Path, "/api/ledger/") {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
