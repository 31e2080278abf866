package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"pdfchat/internal/mailer"
	"pdfchat/internal/platform/rabbitmq"
)

// MailDeliveryWorker drains the outbound mail queue and hands each message to a mailer.
// Failed deliveries are dropped after logging; one-time codes are logged so they stay usable.
type MailDeliveryWorker struct {
	conn      *amqp.Connection
	mail      mailer.Mailer
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMailDeliveryWorker(conn *amqp.Connection, mail mailer.Mailer, queueName string) *MailDeliveryWorker {
	return &MailDeliveryWorker{
		conn:      conn,
		mail:      mail,
		queueName: queueName,
	}
}

func (w *MailDeliveryWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(8, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.process(workerCtx, d)
			}
		}
	}()

	slog.Info("mail delivery worker started", "queue", w.queueName)
	return nil
}

func (w *MailDeliveryWorker) process(ctx context.Context, d amqp.Delivery) {
	var msg mailer.Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		slog.Error("worker decode mail failed", "error", err)
		_ = d.Nack(false, false)
		return
	}

	if err := w.mail.Send(ctx, msg); err != nil {
		attrs := []any{"to", msg.To, "subject", msg.Subject, "error", err}
		if msg.Code != "" {
			attrs = append(attrs, "code", msg.Code)
		}
		if errors.Is(err, mailer.ErrNotConfigured) {
			slog.Info("mail not configured, message dropped", attrs...)
			_ = d.Ack(false)
			return
		}
		slog.Warn("worker deliver mail failed", attrs...)
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

func (w *MailDeliveryWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
