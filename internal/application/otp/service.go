package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/immunopass-go/internal/domain"
	"github.com/immunopass-go/internal/pkg/clock"
	"github.com/immunopass-go/internal/pkg/id"
	"github.com/immunopass-go/internal/pkg/keylock"
	"github.com/immunopass-go/internal/pkg/randcode"
)

const (
	CodeLength        = 6
	Validity          = 15 * time.Minute
	MaxResends        = 2
	MaxVerifyAttempts = 3
)

type SendRequest struct {
	Identifier     string                `json:"identifier" validate:"required,max=254"`
	IdentifierType domain.IdentifierType `json:"identifier_type" validate:"required,oneof=MOBILE EMAIL"`
	AccountType    domain.AccountType    `json:"account_type" validate:"required,oneof=ORGANIZATION PATHOLOGY_LAB"`
}

type VerifyRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	OTP        string `json:"otp" validate:"required,max=16"`
}

type VerifyResult struct {
	AccessToken string          `json:"access_token"`
	Account     *domain.Account `json:"account"`
}

type Service interface {
	Send(ctx context.Context, req SendRequest) (*domain.OTPRecord, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
}

type AccountStore interface {
	GetByIdentifier(ctx context.Context, identifier string, idType domain.IdentifierType) (*domain.Account, error)
}

type OTPStore interface {
	Latest(ctx context.Context, identifier string) (*domain.OTPRecord, error)
	Save(ctx context.Context, o *domain.OTPRecord) error
}

// Sender delivers a code to one channel. A nil error means the message was accepted.
type Sender interface {
	SendOTP(ctx context.Context, name, to, code string) error
}

type TokenSigner interface {
	Sign(a *domain.Account) (string, error)
}

// ServiceDeps bundles the collaborators of the OTP service.
// SMS serves MOBILE identifiers and Mail serves EMAIL identifiers.
type ServiceDeps struct {
	Accounts    AccountStore
	OTPs        OTPStore
	SMS         Sender
	Mail        Sender
	Tokens      TokenSigner
	Clock       clock.Clocker
	Locks       *keylock.Locker
	SendTimeout time.Duration
}

type service struct {
	accounts    AccountStore
	otps        OTPStore
	sms         Sender
	mail        Sender
	tokens      TokenSigner
	clock       clock.Clocker
	locks       *keylock.Locker
	sendTimeout time.Duration
}

func NewService(d ServiceDeps) Service {
	s := &service{
		accounts:    d.Accounts,
		otps:        d.OTPs,
		sms:         d.SMS,
		mail:        d.Mail,
		tokens:      d.Tokens,
		clock:       d.Clock,
		locks:       d.Locks,
		sendTimeout: d.SendTimeout,
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	if s.locks == nil {
		s.locks = keylock.New()
	}
	return s
}

func (s *service) Send(ctx context.Context, req SendRequest) (*domain.OTPRecord, error) {
	acc, err := s.accounts.GetByIdentifier(ctx, req.Identifier, req.IdentifierType)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	if !acc.LinkedTo(req.AccountType) {
		return nil, domain.ErrNotLinked
	}

	unlock := s.locks.Lock(req.Identifier)
	defer unlock()

	now := s.clock.Now()
	rec, err := s.otps.Latest(ctx, req.Identifier)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// An INVALID record stays live until it expires so that exhausting the
	// verify attempts does not reset the resend quota.
	if rec == nil || rec.Status == domain.OTPVerified || rec.Expired(now) {
		code, err := randcode.Numeric(CodeLength)
		if err != nil {
			return nil, err
		}
		rec = &domain.OTPRecord{
			OTPID:          id.New(),
			Identifier:     req.Identifier,
			IdentifierType: req.IdentifierType,
			Code:           code,
			Status:         domain.OTPUnverified,
			ValidTill:      now.Add(Validity),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	} else {
		if rec.RetryCount >= MaxResends {
			slog.Warn("otp resend refused", "identifier", req.Identifier, "otp_id", rec.OTPID)
			return nil, domain.ErrRetryExhausted
		}
		rec.RetryCount++
		rec.UpdatedAt = now
	}

	// The counter is persisted before delivery so failed sends still count.
	if err := s.otps.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save otp: %w", err)
	}

	if err := s.deliver(ctx, acc, rec); err != nil {
		slog.Error("otp delivery failed", "identifier", req.Identifier, "otp_id", rec.OTPID, "err", err)
		return nil, domain.ErrDeliveryFailed
	}
	slog.Info("otp sent", "identifier", req.Identifier, "otp_id", rec.OTPID, "retry_count", rec.RetryCount)
	return rec, nil
}

func (s *service) deliver(ctx context.Context, acc *domain.Account, rec *domain.OTPRecord) error {
	sender := s.sms
	if rec.IdentifierType == domain.IdentifierEmail {
		sender = s.mail
	}
	if sender == nil {
		return fmt.Errorf("no sender for identifier type %s", rec.IdentifierType)
	}
	if s.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
	}
	return sender.SendOTP(ctx, acc.Name, rec.Identifier, rec.Code)
}

func (s *service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	unlock := s.locks.Lock(req.Identifier)
	defer unlock()

	rec, err := s.otps.Latest(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrOTPNotFound
		}
		return nil, err
	}
	now := s.clock.Now()
	if rec.Expired(now) {
		return nil, domain.ErrOTPExpired
	}
	if rec.Status != domain.OTPUnverified {
		return nil, domain.ErrOTPWrongState
	}

	rec.VerificationAttempts++
	rec.UpdatedAt = now
	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(req.OTP)) != 1 {
		result := domain.ErrIncorrectCode
		if rec.VerificationAttempts >= MaxVerifyAttempts {
			rec.Status = domain.OTPInvalid
			result = domain.ErrAttemptsExhausted
		}
		if err := s.otps.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("save otp: %w", err)
		}
		slog.Warn("otp mismatch", "identifier", req.Identifier, "otp_id", rec.OTPID, "attempts", rec.VerificationAttempts)
		return nil, result
	}

	rec.Status = domain.OTPVerified
	if err := s.otps.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save otp: %w", err)
	}

	acc, err := s.accounts.GetByIdentifier(ctx, rec.Identifier, rec.IdentifierType)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	if s.tokens == nil {
		return nil, fmt.Errorf("sign token: %w", domain.ErrUnauthorized)
	}
	token, err := s.tokens.Sign(acc)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	slog.Info("otp verified", "identifier", req.Identifier, "account_id", acc.AccountID)
	return &VerifyResult{AccessToken: token, Account: acc}, nil
}
