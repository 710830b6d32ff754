package natsinfra

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/immunopass-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
	drained bool
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	f.subject, f.data = subj, data
	return f.err
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestPublishOrder(t *testing.T) {
	fc := &fakeConn{}
	p := &Publisher{conn: fc}
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	err := p.PublishOrder(context.Background(), &domain.VoucherOrder{
		OrderID:        "ord-1",
		OrganizationID: "org-1",
		Status:         domain.OrderProcessed,
		VoucherCount:   3,
		DeliveredCount: 2,
		FailedCount:    1,
		UpdatedAt:      at,
	})

	require.NoError(t, err)
	assert.Equal(t, "voucher.order.processed", fc.subject)
	var ev OrderEvent
	require.NoError(t, json.Unmarshal(fc.data, &ev))
	assert.Equal(t, OrderEvent{
		OrderID:        "ord-1",
		OrganizationID: "org-1",
		Status:         domain.OrderProcessed,
		VoucherCount:   3,
		DeliveredCount: 2,
		FailedCount:    1,
		OccurredAt:     at,
	}, ev)
}

func TestPublishOrder_Error(t *testing.T) {
	p := &Publisher{conn: &fakeConn{err: errors.New("nats: connection closed")}}
	err := p.PublishOrder(context.Background(), &domain.VoucherOrder{Status: domain.OrderProcessing})
	assert.ErrorContains(t, err, "publish voucher.order.processing")
}

func TestClose_Drains(t *testing.T) {
	fc := &fakeConn{}
	require.NoError(t, (&Publisher{conn: fc}).Close())
	assert.True(t, fc.drained)
}
