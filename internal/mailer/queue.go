package mailer

import "context"

type Publisher interface {
	Publish(ctx context.Context, v any) error
}

// QueueMailer hands messages to a broker; a delivery worker sends them later.
type QueueMailer struct {
	publisher Publisher
}

func NewQueueMailer(publisher Publisher) *QueueMailer {
	return &QueueMailer{publisher: publisher}
}

func (m *QueueMailer) Send(ctx context.Context, msg Message) error {
	return m.publisher.Publish(ctx, msg)
}
