package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewWriterRequiresAllAcks(t *testing.T) {
	w := NewWriter([]string{"localhost:9092"}, "bet_settled")
	defer w.Close()

	assert.Equal(t, "bet_settled", w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}

func TestEnsureTopicWithoutBrokers(t *testing.T) {
	err := EnsureTopic(context.Background(), nil, "bet_settled", zap.NewNop())
	assert.EqualError(t, err, "kafka brokers not provided")
}

func TestPublishMarshalError(t *testing.T) {
	p := NewJSONPublisher(NewWriter([]string{"localhost:9092"}, "bet_settled"), zap.NewNop())
	defer p.Close()

	// canal não serializa; nada chega ao broker
	err := p.Publish(context.Background(), "k", make(chan int))
	assert.ErrorContains(t, err, "marshal event")
}
