// Package autosettle liquida eventos vencidos usando placares finais do feed.
//
// O scheduler só olha eventos ainda UPCOMING/LIVE que começaram antes da janela
// de carência; evento liquidado vira SETTLED e não volta a aparecer, então rodar
// de novo é seguro.
package autosettle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/masmi9/FourTenMarkets/internal/domain"
	"github.com/masmi9/FourTenMarkets/internal/scorefeed"
	"github.com/masmi9/FourTenMarkets/internal/settlement"
)

var ErrAlreadyStarted = errors.New("auto-settle scheduler already started")

// EventSource lista eventos vencidos com mercados e seleções carregados
type EventSource interface {
	OverdueEvents(ctx context.Context, startedBefore time.Time) ([]domain.Event, error)
}

type ScoreSource interface {
	Scores(ctx context.Context, sport string) ([]scorefeed.Score, error)
}

type Settler interface {
	SettleEvent(ctx context.Context, eventID string, outcomes map[string]domain.Outcome) settlement.Summary
}

type SettledEvent struct {
	EventID   string             `json:"eventId"`
	HomeTeam  string             `json:"homeTeam"`
	AwayTeam  string             `json:"awayTeam"`
	HomeScore float64            `json:"homeScore"`
	AwayScore float64            `json:"awayScore"`
	Summary   settlement.Summary `json:"summary"`
}

type SkippedEvent struct {
	EventID string `json:"eventId"`
	Reason  string `json:"reason"`
}

// Result resume uma execução
type Result struct {
	Settled        int            `json:"settled"`
	Skipped        int            `json:"skipped"`
	Events         []SettledEvent `json:"events"`
	SkippedDetails []SkippedEvent `json:"skippedDetails"`
	Errors         []string       `json:"errors"`
}

func (r *Result) skip(ev domain.Event, reason string) {
	r.Skipped++
	r.SkippedDetails = append(r.SkippedDetails, SkippedEvent{EventID: ev.ID, Reason: reason})
}

type Scheduler struct {
	events   EventSource
	scores   ScoreSource
	settler  Settler
	interval time.Duration
	grace    time.Duration
	log      *zap.Logger
	now      func() time.Time

	OnRun   func()
	OnEvent func(outcome string) // settled, skipped, error
}

const (
	DefaultInterval = 10 * time.Minute
	DefaultGrace    = 3 * time.Hour
)

// NewScheduler cria o loop; intervalo ou janela não positivos caem no default
func NewScheduler(events EventSource, scores ScoreSource, settler Settler, interval, grace time.Duration, log *zap.Logger) *Scheduler {
	log = log.Named("autosettle")
	if interval <= 0 {
		log.Warn("invalid auto-settle interval, using default", zap.Duration("interval", interval))
		interval = DefaultInterval
	}
	if grace <= 0 {
		log.Warn("invalid auto-settle grace, using default", zap.Duration("grace", grace))
		grace = DefaultGrace
	}
	return &Scheduler{
		events:   events,
		scores:   scores,
		settler:  settler,
		interval: interval,
		grace:    grace,
		log:      log,
		now:      time.Now,
	}
}

// Start roda uma vez na hora e depois a cada intervalo, até ctx terminar.
// started é dono do processo: só a primeira chamada roda o loop.
func (s *Scheduler) Start(ctx context.Context, started *atomic.Bool) error {
	if !started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("auto-settle scheduler started",
		zap.Duration("interval", s.interval), zap.Duration("grace", s.grace))

	s.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			s.log.Info("auto-settle scheduler stopped")
			return nil
		}
	}
}

// RunOnce faz uma varredura completa; nunca falha, erros vão no Result
func (s *Scheduler) RunOnce(ctx context.Context) Result {
	res := Result{Events: []SettledEvent{}, SkippedDetails: []SkippedEvent{}, Errors: []string{}}
	if s.OnRun != nil {
		s.OnRun()
	}

	cutoff := s.now().Add(-s.grace)
	evs, err := s.events.OverdueEvents(ctx, cutoff)
	if err != nil {
		s.log.Error("load overdue events failed", zap.Error(err))
		res.Errors = append(res.Errors, fmt.Sprintf("load overdue events: %v", err))
		return res
	}
	if len(evs) == 0 {
		return res
	}

	bySport := map[string][]domain.Event{}
	for _, ev := range evs {
		bySport[ev.Sport] = append(bySport[ev.Sport], ev)
	}
	sports := make([]string, 0, len(bySport))
	for sport := range bySport {
		sports = append(sports, sport)
	}
	sort.Strings(sports)

	for _, sport := range sports {
		scores, err := s.scores.Scores(ctx, sport)
		if err != nil {
			s.log.Error("fetch scores failed", zap.String("sport", sport), zap.Error(err))
			res.Errors = append(res.Errors, fmt.Sprintf("sport %s: fetch scores: %v", sport, err))
			for range bySport[sport] {
				s.mark("error")
			}
			continue
		}
		for _, ev := range bySport[sport] {
			s.settleEvent(ctx, &res, ev, scores)
		}
	}

	s.log.Info("auto-settle run finished",
		zap.Int("overdue", len(evs)),
		zap.Int("settled", res.Settled),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", len(res.Errors)),
	)
	return res
}

func (s *Scheduler) settleEvent(ctx context.Context, res *Result, ev domain.Event, scores []scorefeed.Score) {
	log := s.log.With(zap.String("event_id", ev.ID))

	sc, ok := matchScore(ev, scores)
	if !ok {
		s.skip(log, res, ev, "no matching score")
		return
	}
	home, away, err := finalScore(ev, sc)
	if err != nil {
		s.skip(log, res, ev, err.Error())
		return
	}
	outcomes := deriveOutcomes(ev, home, away)
	if len(outcomes) == 0 {
		s.skip(log, res, ev, "no settleable selection")
		return
	}

	sum := s.settler.SettleEvent(ctx, ev.ID, outcomes)
	res.Settled++
	res.Events = append(res.Events, SettledEvent{
		EventID:   ev.ID,
		HomeTeam:  ev.HomeTeam,
		AwayTeam:  ev.AwayTeam,
		HomeScore: home,
		AwayScore: away,
		Summary:   sum,
	})
	for _, e := range sum.Errors {
		res.Errors = append(res.Errors, fmt.Sprintf("event %s: %s", ev.ID, e))
	}
	s.mark("settled")
	log.Info("event auto-settled",
		zap.Float64("home_score", home),
		zap.Float64("away_score", away),
		zap.Int("selections", len(outcomes)),
	)
}

func (s *Scheduler) skip(log *zap.Logger, res *Result, ev domain.Event, reason string) {
	res.skip(ev, reason)
	s.mark("skipped")
	log.Info("event skipped", zap.String("reason", reason))
}

func (s *Scheduler) mark(outcome string) {
	if s.OnEvent != nil {
		s.OnEvent(outcome)
	}
}
