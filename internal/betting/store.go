package betting

import (
	"context"
	"errors"

	"github.com/masmi9/FourTenMarkets/internal/domain"
)

var (
	ErrRequestNotFound   = errors.New("bet request not found")
	ErrRequestNotPending = errors.New("bet request is not pending")
	ErrCounterExpired    = errors.New("counter offer expired")
	ErrParlayNotFound    = errors.New("parlay not found")
	ErrSelectionNotFound = errors.New("selection not found")
	ErrMarketClosed      = errors.New("market closed")
)

// Store é a persistência dos fluxos de cotação/confirmação.
// PlaceBet e PlaceParlay travam o stake na carteira no mesmo commit e devolvem
// ErrRequestNotPending se outro fluxo já tirou o registro de PENDING e
// ErrMarketClosed se o mercado/evento de alguma seleção fechou antes do commit.
type Store interface {
	SelectionOpen(ctx context.Context, selectionID string) (bool, error)

	SaveRequest(ctx context.Context, r domain.BetRequest) error
	Request(ctx context.Context, id string) (domain.BetRequest, error)
	CloseRequest(ctx context.Context, id string, status domain.RequestStatus, reason string) error
	PlaceBet(ctx context.Context, b domain.Bet) error

	SaveParlay(ctx context.Context, p domain.Parlay) error
	Parlay(ctx context.Context, id string) (domain.Parlay, error)
	CloseParlay(ctx context.Context, id string, status domain.BetStatus) error
	PlaceParlay(ctx context.Context, p domain.Parlay) error
}
