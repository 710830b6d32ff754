package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/immunopass-go/internal/domain"
	"github.com/immunopass-go/internal/infrastructure/memory"
	"github.com/immunopass-go/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSender struct{ mock.Mock }

func (m *mockSender) SendOTP(ctx context.Context, name, to, code string) error {
	return m.Called(ctx, name, to, code).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(a *domain.Account) (string, error) {
	args := m.Called(a)
	return args.String(0), args.Error(1)
}

// --- fixture ---

const phone = "9876543210"

type fixture struct {
	store  *memory.Store
	sms    *mockSender
	mail   *mockSender
	signer *mockSigner
	clock  *clock.Fixed
	svc    Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orgID := "org-1"
	f := &fixture{
		store:  memory.NewStore(),
		sms:    &mockSender{},
		mail:   &mockSender{},
		signer: &mockSigner{},
		clock:  &clock.Fixed{T: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
	}
	accounts := f.store.Accounts()
	require.NoError(t, accounts.Put(context.Background(), &domain.Account{
		AccountID:      "acc-1",
		Identifier:     phone,
		IdentifierType: domain.IdentifierMobile,
		AccountType:    domain.AccountOrganization,
		OrganizationID: &orgID,
		Name:           "Asha",
	}))
	require.NoError(t, accounts.Put(context.Background(), &domain.Account{
		AccountID:      "acc-2",
		Identifier:     "lab@example.com",
		IdentifierType: domain.IdentifierEmail,
		AccountType:    domain.AccountOrganization,
		OrganizationID: &orgID,
		Name:           "Ravi",
	}))
	f.svc = NewService(ServiceDeps{
		Accounts: accounts,
		OTPs:     f.store.OTPs(),
		SMS:      f.sms,
		Mail:     f.mail,
		Tokens:   f.signer,
		Clock:    f.clock,
	})
	return f
}

func (f *fixture) send() (*domain.OTPRecord, error) {
	return f.svc.Send(context.Background(), SendRequest{
		Identifier:     phone,
		IdentifierType: domain.IdentifierMobile,
		AccountType:    domain.AccountOrganization,
	})
}

func (f *fixture) verify(code string) (*VerifyResult, error) {
	return f.svc.Verify(context.Background(), VerifyRequest{Identifier: phone, OTP: code})
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

// --- Send ---

func TestSend_CreatesFreshRecord(t *testing.T) {
	f := newFixture(t)
	f.sms.On("SendOTP", mock.Anything, "Asha", phone, mock.AnythingOfType("string")).Return(nil)

	rec, err := f.send()

	require.NoError(t, err)
	assert.Len(t, rec.Code, CodeLength)
	assert.Regexp(t, `^[0-9]{6}$`, rec.Code)
	assert.Equal(t, domain.OTPUnverified, rec.Status)
	assert.Equal(t, 0, rec.RetryCount)
	assert.Equal(t, 0, rec.VerificationAttempts)
	assert.Equal(t, f.clock.T.Add(15*time.Minute), rec.ValidTill)
	f.sms.AssertCalled(t, "SendOTP", mock.Anything, "Asha", phone, rec.Code)
}

func TestSend_ResendsSameCodeTwiceThenRetryExhausted(t *testing.T) {
	f := newFixture(t)
	f.sms.On("SendOTP", mock.Anything, mock.Anything, phone, mock.Anything).Return(nil)

	first, err := f.send()
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		rec, err := f.send()
		require.NoError(t, err)
		assert.Equal(t, first.Code, rec.Code)
		assert.Equal(t, first.OTPID, rec.OTPID)
		assert.Equal(t, i, rec.RetryCount)
	}

	_, err = f.send()
	assert.ErrorIs(t, err, domain.ErrRetryExhausted)
	assert.Equal(t, "Retry attempts over. Please try after 15 minutes.", err.Error())
	f.sms.AssertNumberOfCalls(t, "SendOTP", 3)
}

func TestSend_AfterExpiryIssuesNewCode(t *testing.T) {
	f := newFixture(t)
	f.sms.On("SendOTP", mock.Anything, mock.Anything, phone, mock.Anything).Return(nil)

	first, err := f.send()
	require.NoError(t, err)
	_, _ = f.send()
	_, _ = f.send()

	f.clock.Advance(Validity)
	rec, err := f.send()

	require.NoError(t, err)
	assert.NotEqual(t, first.OTPID, rec.OTPID)
	assert.Equal(t, 0, rec.RetryCount)
}

func TestSend_AfterVerifiedIssuesNewRecord(t *testing.T) {
	f := newFixture(t)
	f.sms.On("SendOTP", mock.Anything, mock.Anything, phone, mock.Anything).Return(nil)
	f.signer.On("Sign", mock.Anything).Return("token", nil)

	first, err := f.send()
	require.NoError(t, err)
	_, err = f.verify(first.Code)
	require.NoError(t, err)

	rec, err := f.send()
	require.NoError(t, err)
	assert.NotEqual(t, first.OTPID, rec.OTPID)
	assert.Equal(t, domain.OTPUnverified, rec.Status)
}

func TestSend_InvalidRecordKeepsResendQuota(t *testing.T) {
	f := newFixture(t)
	f.sms.On("SendOTP", mock.Anything, mock.Anything, phone, mock.Anything).Return(nil)

	first, err := f.send()
	require.NoError(t, err)
	_, err = f.send()
	require.NoError(t, err)
	_, err = f.send()
	require.NoError(t, err)

	bad := wrongCode(first.Code)
	for i := 0; i < MaxVerifyAttempts; i++ {
		_, _ = f.verify(bad)
	}
	stored, err := f.store.OTPs().Latest(context.Background(), phone)
	require.NoError(t, err)
	require.Equal(t, domain.OTPInvalid, stored.Status)

	_, err = f.send()
	assert.ErrorIs(t, err, domain.ErrRetryExhausted)
	f.sms.AssertNumberOfCalls(t, "SendOTP", 3)

	// Only natural expiry lifts the cooldown.
	f.clock.Advance(Validity)
	rec, err := f.send()
	require.NoError(t, err)
	assert.NotEqual(t, first.OTPID, rec.OTPID)
	assert.Equal(t, domain.OTPUnverified, rec.Status)
}

func TestSend_InvalidRecordResendCountsAgainstQuota(t *testing.T) {
	f := newFixture(t)
	f.sms.On("SendOTP", mock.Anything, mock.Anything, phone, mock.Anything).Return(nil)

	first, err := f.send()
	require.NoError(t, err)
	bad := wrongCode(first.Code)
	for i := 0; i < MaxVerifyAttempts; i++ {
		_, _ = f.verify(bad)
	}

	rec, err := f.send()
	require.NoError(t, err)
	assert.Equal(t, first.OTPID, rec.OTPID)
	assert.Equal(t, 1, rec.RetryCount)

	_, err = f.verify(first.Code)
	assert.ErrorIs(t, err, domain.ErrOTPWrongState)
}

func TestSend_DeliveryFailureStillCountsResend(t *testing.T) {
	f := newFixture(t)
	f.sms.On("SendOTP", mock.Anything, mock.Anything, phone, mock.Anything).Return(errors.New("gateway down"))

	_, err := f.send()
	assert.ErrorIs(t, err, domain.ErrDeliveryFailed)

	stored, err := f.store.OTPs().Latest(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.RetryCount)

	_, err = f.send()
	assert.ErrorIs(t, err, domain.ErrDeliveryFailed)
	stored, err = f.store.OTPs().Latest(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.RetryCount)
}

func TestSend_EmailRoutesToMailer(t *testing.T) {
	f := newFixture(t)
	f.mail.On("SendOTP", mock.Anything, "Ravi", "lab@example.com", mock.Anything).Return(nil)

	_, err := f.svc.Send(context.Background(), SendRequest{
		Identifier:     "lab@example.com",
		IdentifierType: domain.IdentifierEmail,
		AccountType:    domain.AccountOrganization,
	})

	require.NoError(t, err)
	f.mail.AssertExpectations(t)
	f.sms.AssertNotCalled(t, "SendOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Send(context.Background(), SendRequest{
		Identifier:     "9999999999",
		IdentifierType: domain.IdentifierMobile,
		AccountType:    domain.AccountOrganization,
	})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestSend_NotLinkedToLab(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Send(context.Background(), SendRequest{
		Identifier:     phone,
		IdentifierType: domain.IdentifierMobile,
		AccountType:    domain.AccountPathologyLab,
	})
	assert.ErrorIs(t, err, domain.ErrNotLinked)
	f.sms.AssertNotCalled(t, "SendOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- Verify ---

func TestVerify_HappyPath(t *testing.T) {
	f := newFixture(t)
	f.sms.On("SendOTP", mock.Anything, mock.Anything, phone, mock.Anything).Return(nil)
	f.signer.On("Sign", mock.MatchedBy(func(a *domain.Account) bool { return a.AccountID == "acc-1" })).Return("signed.jwt", nil)

	rec, err := f.send()
	require.NoError(t, err)

	res, err := f.verify(rec.Code)
	require.NoError(t, err)
	assert.Equal(t, "signed.jwt", res.AccessToken)
	assert.Equal(t, "acc-1", res.Account.AccountID)

	stored, err := f.store.OTPs().Latest(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, domain.OTPVerified, stored.Status)
	assert.Equal(t, 1, stored.VerificationAttempts)

	_, err = f.verify(rec.Code)
	assert.ErrorIs(t, err, domain.ErrOTPWrongState)
}

func TestVerify_ThreeWrongCodesThenWrongState(t *testing.T) {
	f := newFixture(t)
	f.sms.On("SendOTP", mock.Anything, mock.Anything, phone, mock.Anything).Return(nil)

	rec, err := f.send()
	require.NoError(t, err)
	bad := wrongCode(rec.Code)

	_, err = f.verify(bad)
	assert.ErrorIs(t, err, domain.ErrIncorrectCode)
	_, err = f.verify(bad)
	assert.ErrorIs(t, err, domain.ErrIncorrectCode)
	_, err = f.verify(bad)
	assert.ErrorIs(t, err, domain.ErrAttemptsExhausted)
	_, err = f.verify(rec.Code)
	assert.ErrorIs(t, err, domain.ErrOTPWrongState)

	stored, err := f.store.OTPs().Latest(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, domain.OTPInvalid, stored.Status)
	f.signer.AssertNotCalled(t, "Sign", mock.Anything)
}

func TestVerify_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.verify("123456")
	assert.ErrorIs(t, err, domain.ErrOTPNotFound)
}

func TestVerify_Expired(t *testing.T) {
	f := newFixture(t)
	f.sms.On("SendOTP", mock.Anything, mock.Anything, phone, mock.Anything).Return(nil)

	rec, err := f.send()
	require.NoError(t, err)

	f.clock.Advance(Validity + time.Second)
	_, err = f.verify(rec.Code)
	assert.ErrorIs(t, err, domain.ErrOTPExpired)
}

func TestVerify_SignerErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.sms.On("SendOTP", mock.Anything, mock.Anything, phone, mock.Anything).Return(nil)
	f.signer.On("Sign", mock.Anything).Return("", errors.New("no key"))

	rec, err := f.send()
	require.NoError(t, err)
	_, err = f.verify(rec.Code)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sign token")
}

// --- concurrency ---

func TestVerify_ConcurrentWrongCodesNeverExceedAttemptCap(t *testing.T) {
	f := newFixture(t)
	f.sms.On("SendOTP", mock.Anything, mock.Anything, phone, mock.Anything).Return(nil)

	rec, err := f.send()
	require.NoError(t, err)
	bad := wrongCode(rec.Code)

	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := map[error]int{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.verify(bad)
			mu.Lock()
			outcomes[err]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, MaxVerifyAttempts-1, outcomes[domain.ErrIncorrectCode])
	assert.Equal(t, 1, outcomes[domain.ErrAttemptsExhausted])
	assert.Equal(t, 20-MaxVerifyAttempts, outcomes[domain.ErrOTPWrongState])

	stored, err := f.store.OTPs().Latest(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, MaxVerifyAttempts, stored.VerificationAttempts)
	assert.Equal(t, domain.OTPInvalid, stored.Status)
}

func TestSend_ConcurrentCallsNeverExceedResendCap(t *testing.T) {
	f := newFixture(t)
	f.sms.On("SendOTP", mock.Anything, mock.Anything, phone, mock.Anything).Return(nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	sent, exhausted := 0, 0
	ids := map[string]struct{}{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := f.send()
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sent++
				ids[rec.OTPID] = struct{}{}
			case errors.Is(err, domain.ErrRetryExhausted):
				exhausted++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1+MaxResends, sent)
	assert.Equal(t, 10-1-MaxResends, exhausted)
	assert.Len(t, ids, 1)
	f.sms.AssertNumberOfCalls(t, "SendOTP", 1+MaxResends)
}
