package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/radieske/suibets-platform/internal/bet-service/dto"
	"github.com/radieske/suibets-platform/internal/bet-service/mirror"
	"github.com/radieske/suibets-platform/internal/bet-service/repo"
	"github.com/radieske/suibets-platform/internal/reconciler"
	"github.com/radieske/suibets-platform/internal/shared/metrics"
	"github.com/radieske/suibets-platform/pkg/contracts/events"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	maxBodyBytes        = 1 << 20

	syncPendingWarning = "bet confirmed on-chain; history sync pending"
)

type Store interface {
	ListByWallet(ctx context.Context, wallet string, limit int) ([]repo.Bet, error)
	ListParlaysByWallet(ctx context.Context, wallet string, limit int) ([]repo.Parlay, error)
	GetByID(ctx context.Context, id int64) (*repo.Bet, error)
	GetParlay(ctx context.Context, id int64) (*repo.Parlay, error)
	UpdateStatus(ctx context.Context, id int64, status, reason string) (*repo.Bet, error)
}

type Mirror interface {
	WriteBet(ctx context.Context, req dto.PlaceBetRequest) (*mirror.Result, error)
	WriteParlay(ctx context.Context, req dto.PlaceParlayRequest) (*mirror.Result, error)
}

type HistoryCache interface {
	Get(ctx context.Context, wallet string, dst any) (int64, bool, error)
	Set(ctx context.Context, wallet string, gen int64, v any) error
	Invalidate(ctx context.Context, wallet string) error
}

type PendingPublisher interface {
	PublishMirrorPending(ctx context.Context, e events.MirrorPending) error
}

type Reconciler interface {
	ReconcileWallet(ctx context.Context, wallet string) (*reconciler.Report, error)
}

// Server expõe a API REST do espelho de apostas.
// Cache, Pending e Reconciler são opcionais.
type Server struct {
	Log            *zap.Logger
	Store          Store
	Mirror         Mirror
	Cache          HistoryCache
	Pending        PendingPublisher
	Reconciler     Reconciler
	AllowedOrigins []string
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Post("/bets", s.placeBet)                         // espelha aposta simples confirmada
	r.Get("/bets", s.listByWallet)                      // GET /bets?wallet=
	r.Get("/bets/{id}", s.getBet)                       // detalhe
	r.Patch("/bets/{id}/status", s.updateStatus)        // liquidação
	r.Post("/parlays", s.placeParlay)                   // espelha parlay confirmada
	r.Get("/parlays/{id}", s.getParlay)                 // detalhe com pernas
	r.Post("/wallets/{address}/reconcile", s.reconcile) // chain -> espelho
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return nil, false
	}
	return raw, true
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r)
	if !ok {
		return
	}
	var req dto.PlaceBetRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	res, err := s.Mirror.WriteBet(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, events.KindBet, req.WalletAddress, req.TxHash, raw, err)
		return
	}
	writeJSON(w, createdStatus(res.Created), toBetResponse(*res.Bet))
}

func (s *Server) placeParlay(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r)
	if !ok {
		return
	}
	var req dto.PlaceParlayRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	res, err := s.Mirror.WriteParlay(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, events.KindParlay, req.WalletAddress, req.TxHash, raw, err)
		return
	}
	writeJSON(w, createdStatus(res.Created), toParlayResponse(*res.Parlay))
}

func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}

// writeFailure aplica a política de reconciliação: erro do cliente é 4xx;
// falha de escrita vira 202 com syncPending, porque a aposta já está on-chain.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, kind, wallet, txHash string, raw []byte, err error) {
	switch {
	case errors.Is(err, mirror.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, repo.ErrMirrorMismatch):
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	log := s.Log.With(
		zap.String("kind", kind),
		zap.String("tx_hash", txHash),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)
	log.Error("mirror write failed; bet is on-chain", zap.Error(err))

	s.publishPending(r.Context(), log, events.MirrorPending{
		Kind:     kind,
		Wallet:   mirror.NormalizeWallet(wallet),
		TxHash:   txHash,
		Reason:   err.Error(),
		Payload:  json.RawMessage(raw),
		Attempts: 1,
	})
	writeJSON(w, http.StatusAccepted, dto.SyncPendingResponse{
		SyncPending: true,
		TxHash:      txHash,
		Warning:     syncPendingWarning,
	})
}

func (s *Server) publishPending(ctx context.Context, log *zap.Logger, e events.MirrorPending) {
	if s.Pending == nil {
		metrics.MirrorPendingPublished.WithLabelValues("disabled").Inc()
		return
	}
	if err := s.Pending.PublishMirrorPending(ctx, e); err != nil {
		metrics.MirrorPendingPublished.WithLabelValues("failed").Inc()
		log.Error("publish mirror_pending", zap.Error(err))
		return
	}
	metrics.MirrorPendingPublished.WithLabelValues("ok").Inc()
}

func (s *Server) listByWallet(w http.ResponseWriter, r *http.Request) {
	wallet := mirror.NormalizeWallet(r.URL.Query().Get("wallet"))
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "wallet is required")
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	// só a página padrão vai para o cache
	cacheable := s.Cache != nil && limit == defaultHistoryLimit

	var gen int64
	if cacheable {
		var (
			cached dto.WalletHistoryResponse
			ok     bool
			err    error
		)
		gen, ok, err = s.Cache.Get(r.Context(), wallet, &cached)
		switch {
		case err != nil:
			// sem a geração não dá para gravar com segurança
			cacheable = false
			s.Log.Warn("history cache get", zap.String("wallet", wallet), zap.Error(err))
		case ok:
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	bets, err := s.Store.ListByWallet(r.Context(), wallet, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	parlays, err := s.Store.ListParlaysByWallet(r.Context(), wallet, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := toHistoryResponse(wallet, bets, parlays)

	if cacheable {
		if err := s.Cache.Set(r.Context(), wallet, gen, resp); err != nil {
			s.Log.Warn("history cache set", zap.String("wallet", wallet), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	b, err := s.Store.GetByID(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toBetResponse(*b))
}

func (s *Server) getParlay(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	p, err := s.Store.GetParlay(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toParlayResponse(*p))
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	b, err := s.Store.UpdateStatus(r.Context(), id, req.Status, req.Reason)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
		return
	case errors.Is(err, repo.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.invalidate(r.Context(), b.WalletAddress)
	writeJSON(w, http.StatusOK, toBetResponse(*b))
}

func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) {
	if s.Reconciler == nil {
		writeError(w, http.StatusServiceUnavailable, "reconciliation disabled")
		return
	}
	wallet := mirror.NormalizeWallet(chi.URLParam(r, "address"))
	rep, err := s.Reconciler.ReconcileWallet(r.Context(), wallet)
	if err != nil {
		s.Log.Error("reconcile wallet", zap.String("wallet", wallet), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if rep.Restored > 0 {
		s.invalidate(r.Context(), wallet)
	}
	writeJSON(w, http.StatusOK, dto.ReconcileResponse{
		WalletAddress: rep.Wallet,
		OnChain:       rep.OnChain,
		Mirrored:      rep.Mirrored,
		Restored:      rep.Restored,
		Mismatches:    rep.Mismatches,
		Skipped:       rep.Skipped,
	})
}

func (s *Server) invalidate(ctx context.Context, wallet string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, wallet); err != nil {
		s.Log.Warn("history cache invalidate", zap.String("wallet", wallet), zap.Error(err))
	}
}
