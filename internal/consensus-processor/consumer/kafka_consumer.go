package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/masmi9/FourTenMarkets/internal/domain"
	"github.com/masmi9/FourTenMarkets/internal/oddsmath"
	"github.com/masmi9/FourTenMarkets/pkg/contracts/events"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type Repository interface {
	UpsertCurrent(ctx context.Context, co domain.ConsensusOdds) (bool, error)
	InsertHistory(ctx context.Context, co domain.ConsensusOdds) error
}

// Cache é a parte do store rápido que guarda a odd de consenso
type Cache interface {
	SetConsensusOdds(ctx context.Context, co domain.ConsensusOdds) error
}

type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
}

// Processor consome odds de consenso do Kafka, atualiza o cache e persiste no banco
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Processor struct {
	Log    *zap.Logger
	Reader MessageReader
	Repo   Repository
	Cache  Cache
	DLQ    Publisher // opcional

	OnConsumed func()       // métricas (counter++)
	OnCached   func()       // métricas
	OnPersist  func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e processamento das mensagens Kafka
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma única mensagem; erros são logados e contados, nunca propagados
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	if p.OnConsumed != nil {
		p.OnConsumed()
	}

	var ev events.ConsensusOddsUpdate
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		p.Log.Warn("invalid message", zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, m, "decode", err)
		return
	}
	co, err := toConsensus(ev, m.Time)
	if err != nil {
		p.Log.Warn("invalid consensus update", zap.String("selection_id", ev.SelectionID), zap.Error(err))
		p.fail("validate")
		p.deadLetter(ctx, m, "validate", err)
		return
	}
	log := p.Log.With(zap.String("selection_id", co.SelectionID))

	// Persiste primeiro: update fora de ordem não deve chegar ao cache
	applied, err := p.Repo.UpsertCurrent(ctx, co)
	if err != nil {
		log.Warn("db upsert failed", zap.Error(err))
		p.fail("db_upsert")
		return
	}
	if !applied {
		log.Debug("stale consensus update ignored", zap.Time("updated_at", co.UpdatedAt))
		return
	}
	if err := p.Repo.InsertHistory(ctx, co); err != nil {
		log.Warn("db insert history failed", zap.Error(err))
		p.fail("db_history")
	} else if p.OnPersist != nil {
		p.OnPersist()
	}

	// falha de cache não bloqueia: o ledger cai para o banco
	if err := p.Cache.SetConsensusOdds(ctx, co); err != nil {
		log.Warn("redis set failed", zap.Error(err))
		p.fail("cache")
		return
	}
	if p.OnCached != nil {
		p.OnCached()
	}
}

var errMissingSelection = errors.New("selectionId required")

// toConsensus valida o evento e completa probabilidade e timestamp ausentes
func toConsensus(ev events.ConsensusOddsUpdate, msgTime time.Time) (domain.ConsensusOdds, error) {
	if ev.SelectionID == "" {
		return domain.ConsensusOdds{}, errMissingSelection
	}
	if !oddsmath.Valid(ev.AmericanOdds) {
		return domain.ConsensusOdds{}, fmt.Errorf("invalid american odds %d", ev.AmericanOdds)
	}
	co := domain.ConsensusOdds{
		SelectionID:  ev.SelectionID,
		AmericanOdds: ev.AmericanOdds,
		ImpliedProb:  ev.ImpliedProb,
		LineMovement: ev.LineMovement,
		UpdatedAt:    ev.UpdatedAt,
	}
	if co.ImpliedProb <= 0 || co.ImpliedProb >= 1 {
		co.ImpliedProb = oddsmath.ImpliedProbability(co.AmericanOdds)
	}
	if co.UpdatedAt.IsZero() {
		co.UpdatedAt = msgTime
	}
	if co.UpdatedAt.IsZero() {
		co.UpdatedAt = time.Now()
	}
	co.UpdatedAt = co.UpdatedAt.UTC()
	return co, nil
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, stage string, cause error) {
	if p.DLQ == nil {
		return
	}
	dl := events.DeadLetter{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Stage:     stage,
		Error:     cause.Error(),
		Payload:   string(m.Value),
		Ts:        time.Now().UTC(),
	}
	if err := p.DLQ.Publish(ctx, string(m.Key), dl); err != nil {
		p.Log.Warn("dlq publish failed", zap.Error(err))
		p.fail("dlq")
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
