package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/masmi9/FourTenMarkets/internal/autosettle"
	"github.com/masmi9/FourTenMarkets/internal/betting"
	"github.com/masmi9/FourTenMarkets/internal/domain"
	"github.com/masmi9/FourTenMarkets/internal/engine-service/dto"
	"github.com/masmi9/FourTenMarkets/internal/pricing"
	"github.com/masmi9/FourTenMarkets/internal/settlement"
	"github.com/masmi9/FourTenMarkets/internal/wallet"
)

// Betting são os fluxos de cotação e confirmação
type Betting interface {
	Quote(ctx context.Context, req pricing.Request) (betting.Quote, error)
	Confirm(ctx context.Context, requestID, userID string) (domain.Bet, error)
	QuoteParlay(ctx context.Context, req pricing.ParlayRequest) (betting.ParlayQuote, error)
	ConfirmParlay(ctx context.Context, parlayID, userID string) (domain.Parlay, error)
}

type Wallets interface {
	GetOrCreateWallet(ctx context.Context, userID string) (domain.Wallet, error)
	Deposit(ctx context.Context, userID string, amount decimal.Decimal, externalRef string) (domain.Wallet, error)
	Withdraw(ctx context.Context, userID string, amount decimal.Decimal, externalRef string) (domain.Wallet, error)
}

type Settler interface {
	SettleEvent(ctx context.Context, eventID string, outcomes map[string]domain.Outcome) settlement.Summary
}

type AutoSettler interface {
	RunOnce(ctx context.Context) autosettle.Result
}

// API expõe cotação, confirmação, carteira e rotas administrativas de liquidação
type API struct {
	log        *zap.Logger
	betting    Betting
	wallets    Wallets
	settler    Settler
	autoSettle AutoSettler
}

func NewAPI(log *zap.Logger, b Betting, w Wallets, s Settler, a AutoSettler) *API {
	return &API{log: log.Named("http"), betting: b, wallets: w, settler: s, autoSettle: a}
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/v1/quotes", a.quote)
	r.Post("/v1/quotes/{id}/confirm", a.confirm)
	r.Post("/v1/parlays/quotes", a.quoteParlay)
	r.Post("/v1/parlays/{id}/confirm", a.confirmParlay)

	r.Get("/v1/wallet", a.getWallet) // ?userId=...
	r.Post("/v1/wallet/deposit", a.deposit)
	r.Post("/v1/wallet/withdraw", a.withdraw)

	r.Post("/v1/admin/events/{id}/settle", a.settleEvent)
	r.Post("/v1/admin/autosettle/run", a.runAutoSettle)
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail traduz erros de domínio em status HTTP
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, betting.ErrRequestNotFound),
		errors.Is(err, betting.ErrParlayNotFound),
		errors.Is(err, betting.ErrSelectionNotFound),
		errors.Is(err, wallet.ErrWalletNotFound):
		status = http.StatusNotFound
	case errors.Is(err, betting.ErrRequestNotPending),
		errors.Is(err, betting.ErrMarketClosed),
		errors.Is(err, wallet.ErrInsufficientFunds):
		status = http.StatusConflict
	case errors.Is(err, betting.ErrCounterExpired):
		status = http.StatusGone
	case errors.Is(err, wallet.ErrInvalidAmount):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		a.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return false
	}
	return true
}

// quote sempre responde 200 com a decisão; limites viram REJECT, não erro HTTP
func (a *API) quote(w http.ResponseWriter, r *http.Request) {
	var req dto.QuoteRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" || req.SelectionID == "" {
		writeError(w, http.StatusBadRequest, "userId and selectionId required")
		return
	}
	q, err := a.betting.Quote(r.Context(), pricing.Request{
		UserID:        req.UserID,
		SelectionID:   req.SelectionID,
		RequestedOdds: req.RequestedOdds,
		Stake:         req.Stake,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewQuoteResponse(q))
}

func (a *API) confirm(w http.ResponseWriter, r *http.Request) {
	var req dto.ConfirmRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	bet, err := a.betting.Confirm(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewBetResponse(bet))
}

func (a *API) quoteParlay(w http.ResponseWriter, r *http.Request) {
	var req dto.ParlayQuoteRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	legs := make([]pricing.LegRequest, 0, len(req.Legs))
	for _, l := range req.Legs {
		if l.SelectionID == "" {
			writeError(w, http.StatusBadRequest, "selectionId required on every leg")
			return
		}
		legs = append(legs, pricing.LegRequest{SelectionID: l.SelectionID, RequestedOdds: l.RequestedOdds})
	}
	q, err := a.betting.QuoteParlay(r.Context(), pricing.ParlayRequest{UserID: req.UserID, Stake: req.Stake, Legs: legs})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewParlayQuoteResponse(q))
}

func (a *API) confirmParlay(w http.ResponseWriter, r *http.Request) {
	var req dto.ConfirmRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	p, err := a.betting.ConfirmParlay(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewParlayResponse(p))
}

// getWallet retorna (ou cria) a carteira do usuário
func (a *API) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	wl, err := a.wallets.GetOrCreateWallet(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewWalletResponse(wl))
}

func (a *API) deposit(w http.ResponseWriter, r *http.Request) {
	a.moveFunds(w, r, a.wallets.Deposit)
}

func (a *API) withdraw(w http.ResponseWriter, r *http.Request) {
	a.moveFunds(w, r, a.wallets.Withdraw)
}

func (a *API) moveFunds(w http.ResponseWriter, r *http.Request,
	move func(context.Context, string, decimal.Decimal, string) (domain.Wallet, error)) {
	var req dto.WalletMoveRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" || !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	wl, err := move(r.Context(), req.UserID, req.Amount, req.ExternalRef)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewWalletResponse(wl))
}

// settleEvent liquida manualmente; o resumo volta mesmo com erros parciais
func (a *API) settleEvent(w http.ResponseWriter, r *http.Request) {
	var req dto.SettleRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Outcomes) == 0 {
		writeError(w, http.StatusBadRequest, "outcomes required")
		return
	}
	for sel, o := range req.Outcomes {
		if !o.Valid() {
			writeError(w, http.StatusBadRequest, "invalid outcome for selection "+sel)
			return
		}
	}
	writeJSON(w, http.StatusOK, a.settler.SettleEvent(r.Context(), chi.URLParam(r, "id"), req.Outcomes))
}

func (a *API) runAutoSettle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.autoSettle.RunOnce(r.Context()))
}
