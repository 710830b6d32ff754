package voucher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/immunopass-go/internal/domain"
	"github.com/immunopass-go/internal/pkg/clock"
	"github.com/immunopass-go/internal/pkg/id"
	"github.com/immunopass-go/internal/pkg/keylock"
	"github.com/immunopass-go/internal/pkg/randcode"
	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"
)

const (
	CodeLength     = 8
	csvContentType = "text/csv"
	utf8BOM        = "\uFEFF"

	codeAttempts  = 5
	quotaAttempts = 3
)

type Service interface {
	CreateOrder(ctx context.Context, acct domain.AccountContext, file io.Reader) (*domain.VoucherOrder, error)
	MaterializeVouchers(ctx context.Context) error
	DispatchOrders(ctx context.Context) error
}

type OrganizationStore interface {
	Get(ctx context.Context, orgID string) (*domain.Organization, error)
}

type OrderStore interface {
	Create(ctx context.Context, o *domain.VoucherOrder, alloc domain.Allocation) error
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.VoucherOrder, error)
	Save(ctx context.Context, o *domain.VoucherOrder) error
}

type VoucherStore interface {
	Create(ctx context.Context, v *domain.Voucher) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.Voucher, error)
	Save(ctx context.Context, v *domain.Voucher) error
}

type BlobStore interface {
	Put(ctx context.Context, data []byte, contentType, key string) (string, error)
	GetLines(ctx context.Context, ref string) ([]string, error)
	Delete(ctx context.Context, ref string) error
}

// Sender delivers a voucher code to the beneficiary. A nil error means the message was accepted.
type Sender interface {
	SendVoucher(ctx context.Context, name, mobile, voucherCode string) error
}

// EventPublisher announces order status changes. Optional.
type EventPublisher interface {
	PublishOrder(ctx context.Context, o *domain.VoucherOrder) error
}

type ServiceDeps struct {
	Organizations OrganizationStore
	Orders        OrderStore
	Vouchers      VoucherStore
	Blobs         BlobStore
	SMS           Sender
	Events        EventPublisher
	Clock         clock.Clocker
	Locks         *keylock.Locker
	SendTimeout   time.Duration
	// MaxDeliveryAttempts marks a voucher FAILED once this many sends failed. Zero retries forever.
	MaxDeliveryAttempts int
}

type service struct {
	orgs        OrganizationStore
	orders      OrderStore
	vouchers    VoucherStore
	blobs       BlobStore
	sms         Sender
	events      EventPublisher
	clock       clock.Clocker
	locks       *keylock.Locker
	sendTimeout time.Duration
	maxAttempts int
}

func NewService(d ServiceDeps) Service {
	s := &service{
		orgs:        d.Organizations,
		orders:      d.Orders,
		vouchers:    d.Vouchers,
		blobs:       d.Blobs,
		sms:         d.SMS,
		events:      d.Events,
		clock:       d.Clock,
		locks:       d.Locks,
		sendTimeout: d.SendTimeout,
		maxAttempts: d.MaxDeliveryAttempts,
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	if s.locks == nil {
		s.locks = keylock.New()
	}
	return s
}

func (s *service) CreateOrder(ctx context.Context, acct domain.AccountContext, file io.Reader) (*domain.VoucherOrder, error) {
	if acct.OrganizationID == "" {
		return nil, domain.ErrNotLinked
	}

	unlock := s.locks.Lock(acct.OrganizationID)
	defer unlock()

	org, err := s.activeOrganization(ctx, acct.OrganizationID)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", domain.ErrBadRequest)
	}
	records, err := validateUpload(data)
	if err != nil {
		return nil, err
	}
	if len(records) > org.RemainingVouchers() {
		return nil, domain.ErrQuotaExceeded
	}

	key := fmt.Sprintf("voucher_orders/voucher_order_%s.csv", uuid.NewString())
	ref, err := s.blobs.Put(ctx, []byte(strings.Join(records, "\n")), csvContentType, key)
	if err != nil {
		slog.Error("voucher order upload failed", "organization_id", org.OrganizationID, "key", key, "err", err)
		return nil, domain.ErrUploadFailed
	}

	now := s.clock.Now()
	order := &domain.VoucherOrder{
		OrderID:        id.New(),
		OrganizationID: org.OrganizationID,
		Status:         domain.OrderCreated,
		UploadedFile:   ref,
		VoucherCount:   len(records),
		CreatedBy:      acct.AccountID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// The org row may be updated by another process between the read and the
	// write; the store rejects stale allocations and we re-read.
	backoff := retry.WithMaxRetries(quotaAttempts, retry.NewConstant(20*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.orders.Create(ctx, order, domain.Allocation{
			OrganizationID: org.OrganizationID,
			Expected:       org.AllotedVouchers,
			Count:          order.VoucherCount,
		})
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		org, err = s.activeOrganization(ctx, acct.OrganizationID)
		if err != nil {
			return err
		}
		if order.VoucherCount > org.RemainingVouchers() {
			return domain.ErrQuotaExceeded
		}
		return retry.RetryableError(domain.ErrConflict)
	})
	if err != nil {
		if derr := s.blobs.Delete(ctx, ref); derr != nil {
			slog.Warn("orphaned voucher order upload", "ref", ref, "err", derr)
		}
		return nil, fmt.Errorf("create voucher order: %w", err)
	}

	slog.Info("voucher order created",
		"order_id", order.OrderID,
		"organization_id", order.OrganizationID,
		"voucher_count", order.VoucherCount,
	)
	return order, nil
}

func (s *service) activeOrganization(ctx context.Context, orgID string) (*domain.Organization, error) {
	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrOrgInactive
		}
		return nil, err
	}
	if org.Status != domain.EntityActive {
		return nil, domain.ErrOrgInactive
	}
	return org, nil
}

// validateUpload skips the header and returns the normalized data rows.
// The first invalid row rejects the whole upload.
func validateUpload(data []byte) ([]string, error) {
	data = bytes.TrimPrefix(data, []byte(utf8BOM))
	lines := strings.Split(string(data), "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	var records []string
	row := 0
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		row++
		rec, err := ValidateRecord(line)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, domain.ErrEmptyUpload
	}
	return records, nil
}

func (s *service) MaterializeVouchers(ctx context.Context) error {
	orders, err := s.orders.ListByStatus(ctx, domain.OrderCreated)
	if err != nil {
		return fmt.Errorf("list created orders: %w", err)
	}
	var errs []error
	for i := range orders {
		if err := s.materialize(ctx, &orders[i]); err != nil {
			slog.Error("materialize order failed", "order_id", orders[i].OrderID, "err", err)
			errs = append(errs, fmt.Errorf("order %s: %w", orders[i].OrderID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *service) materialize(ctx context.Context, o *domain.VoucherOrder) error {
	lines, err := s.blobs.GetLines(ctx, o.UploadedFile)
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}
	existing, err := s.vouchers.ListByOrder(ctx, o.OrderID)
	if err != nil {
		return fmt.Errorf("list vouchers: %w", err)
	}
	done := lo.KeyBy(existing, func(v domain.Voucher) int { return v.RowIndex })

	row := 0
	created := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		idx := row
		row++
		if _, ok := done[idx]; ok {
			continue
		}
		rec, err := ParseRecord(line)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		v := &domain.Voucher{
			VoucherID:        fmt.Sprintf("%s-%05d", o.OrderID, idx),
			OrderID:          o.OrderID,
			RowIndex:         idx,
			UserName:         rec.Name,
			UserMobile:       rec.Mobile,
			UserIDCardType:   rec.IDCardType,
			UserIDCardNumber: rec.IDNumber,
			UserEmployeeID:   rec.EmployeeID,
			Status:           domain.VoucherAllotted,
			IssuerID:         o.CreatedBy,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		err = s.createVoucher(ctx, v)
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("row %d: %w", idx+1, err)
		}
		created++
	}

	o.Status = domain.OrderProcessing
	o.UpdatedAt = s.clock.Now()
	if err := s.orders.Save(ctx, o); err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	slog.Info("vouchers materialized", "order_id", o.OrderID, "created", created, "rows", row)
	s.publish(ctx, o)
	return nil
}

// createVoucher assigns a fresh code and regenerates it while the store reports a collision.
func (s *service) createVoucher(ctx context.Context, v *domain.Voucher) error {
	backoff := retry.WithMaxRetries(codeAttempts, retry.NewConstant(10*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		code, err := randcode.Alphanumeric(CodeLength)
		if err != nil {
			return err
		}
		v.VoucherCode = code
		err = s.vouchers.Create(ctx, v)
		if errors.Is(err, domain.ErrCodeTaken) {
			slog.Warn("voucher code collision", "voucher_id", v.VoucherID)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *service) DispatchOrders(ctx context.Context) error {
	orders, err := s.orders.ListByStatus(ctx, domain.OrderProcessing)
	if err != nil {
		return fmt.Errorf("list processing orders: %w", err)
	}
	var errs []error
	for i := range orders {
		if err := s.dispatch(ctx, &orders[i]); err != nil {
			slog.Error("dispatch order failed", "order_id", orders[i].OrderID, "err", err)
			errs = append(errs, fmt.Errorf("order %s: %w", orders[i].OrderID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *service) dispatch(ctx context.Context, o *domain.VoucherOrder) error {
	// The listing may lag recent saves, so a voucher already delivered can show
	// up as ALLOTTED and be sent again. Its versioned save then fails and the
	// order waits for the next pass. Delivery is at-least-once.
	vouchers, err := s.vouchers.ListByOrder(ctx, o.OrderID)
	if err != nil {
		return fmt.Errorf("list vouchers: %w", err)
	}

	saveFailed := false
	for i := range vouchers {
		v := &vouchers[i]
		if v.Status != domain.VoucherAllotted {
			continue
		}
		if err := s.sendVoucher(ctx, v); err != nil {
			reason := err.Error()
			v.RetryCount++
			v.LastFailureReason = &reason
			if s.maxAttempts > 0 && v.RetryCount >= s.maxAttempts {
				v.Status = domain.VoucherFailed
			}
			slog.Warn("voucher delivery failed",
				"voucher_id", v.VoucherID,
				"order_id", o.OrderID,
				"retry_count", v.RetryCount,
				"status", v.Status,
				"err", err,
			)
		} else {
			v.Status = domain.VoucherProcessed
		}
		v.UpdatedAt = s.clock.Now()
		if err := s.vouchers.Save(ctx, v); err != nil {
			slog.Error("save voucher failed", "voucher_id", v.VoucherID, "err", err)
			saveFailed = true
		}
	}

	if saveFailed || lo.ContainsBy(vouchers, func(v domain.Voucher) bool { return v.Status == domain.VoucherAllotted }) {
		return nil
	}

	o.Status = domain.OrderProcessed
	o.DeliveredCount = lo.CountBy(vouchers, func(v domain.Voucher) bool { return v.Status == domain.VoucherProcessed })
	o.FailedCount = lo.CountBy(vouchers, func(v domain.Voucher) bool { return v.Status == domain.VoucherFailed })
	o.UpdatedAt = s.clock.Now()
	if err := s.orders.Save(ctx, o); err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	slog.Info("voucher order processed",
		"order_id", o.OrderID,
		"delivered", o.DeliveredCount,
		"failed", o.FailedCount,
	)
	s.publish(ctx, o)
	return nil
}

// sendVoucher converts a panicking sender into an ordinary delivery failure.
func (s *service) sendVoucher(ctx context.Context, v *domain.Voucher) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sms sender panic: %v", r)
		}
	}()
	if s.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
	}
	return s.sms.SendVoucher(ctx, v.UserName, v.UserMobile, v.VoucherCode)
}

func (s *service) publish(ctx context.Context, o *domain.VoucherOrder) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrder(ctx, o); err != nil {
		slog.Warn("publish order event failed", "order_id", o.OrderID, "status", o.Status, "err", err)
	}
}
