package events

import "time"

// Mensagem que não pôde ser processada, publicada no DLQ do tópico de origem
type DeadLetter struct {
	Topic     string    `json:"topic"`
	Partition int       `json:"partition"`
	Offset    int64     `json:"offset"`
	Stage     string    `json:"stage"` // decode | validate
	Error     string    `json:"error"`
	Payload   string    `json:"payload"`
	Ts        time.Time `json:"ts"`
}
