// Package natsinfra publishes voucher order lifecycle events.
package natsinfra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/immunopass-go/internal/domain"
	"github.com/nats-io/nats.go"
)

const subjectPrefix = "voucher.order."

type conn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// OrderEvent is the payload sent on voucher.order.<status>.
type OrderEvent struct {
	OrderID        string             `json:"order_id"`
	OrganizationID string             `json:"organization_id"`
	Status         domain.OrderStatus `json:"status"`
	VoucherCount   int                `json:"voucher_count"`
	DeliveredCount int                `json:"delivered_count"`
	FailedCount    int                `json:"failed_count"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

type Publisher struct {
	conn conn
}

func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("immunopass-api"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("connected to NATS", "url", url)
	return &Publisher{conn: nc}, nil
}

func (p *Publisher) PublishOrder(_ context.Context, o *domain.VoucherOrder) error {
	data, err := json.Marshal(OrderEvent{
		OrderID:        o.OrderID,
		OrganizationID: o.OrganizationID,
		Status:         o.Status,
		VoucherCount:   o.VoucherCount,
		DeliveredCount: o.DeliveredCount,
		FailedCount:    o.FailedCount,
		OccurredAt:     o.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	subject := Subject(o.Status)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subject returns the subject an order status is announced on.
func Subject(status domain.OrderStatus) string {
	return subjectPrefix + strings.ToLower(string(status))
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
