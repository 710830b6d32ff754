package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/immunopass-go/internal/application/otp"
	"github.com/immunopass-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockOTPSvc struct{ mock.Mock }

func (m *mockOTPSvc) Send(ctx context.Context, req otp.SendRequest) (*domain.OTPRecord, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*domain.OTPRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOTPSvc) Verify(ctx context.Context, req otp.VerifyRequest) (*otp.VerifyResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*otp.VerifyResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

// --- Send ---

func TestOTPSend_OK(t *testing.T) {
	svc := &mockOTPSvc{}
	req := otp.SendRequest{Identifier: "9876543210", IdentifierType: domain.IdentifierMobile, AccountType: domain.AccountOrganization}
	validTill := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.On("Send", mock.Anything, req).Return(&domain.OTPRecord{Code: "123456", ValidTill: validTill, RetryCount: 1}, nil)

	rr := httptest.NewRecorder()
	NewOTPHandler(svc).Send(rr, httptest.NewRequest(http.MethodPost, "/v1/otp/send", jsonBody(t, req)))

	assert.Equal(t, http.StatusOK, rr.Code)
	var env OTPSentEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "2026-01-02T03:04:05Z", env.ValidTill)
	assert.Equal(t, 1, env.RetryCount)
	assert.NotContains(t, rr.Body.String(), "123456")
	svc.AssertExpectations(t)
}

func TestOTPSend_InvalidIdentifierType(t *testing.T) {
	svc := &mockOTPSvc{}
	body := map[string]string{"identifier": "x", "identifier_type": "FAX", "account_type": "ORGANIZATION"}

	rr := httptest.NewRecorder()
	NewOTPHandler(svc).Send(rr, httptest.NewRequest(http.MethodPost, "/v1/otp/send", jsonBody(t, body)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "identifier_type")
	svc.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestOTPSend_BadJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	NewOTPHandler(&mockOTPSvc{}).Send(rr, httptest.NewRequest(http.MethodPost, "/v1/otp/send", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOTPSend_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrAccountNotFound, http.StatusNotFound},
		{domain.ErrNotLinked, http.StatusForbidden},
		{domain.ErrRetryExhausted, http.StatusTooManyRequests},
		{domain.ErrDeliveryFailed, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	req := otp.SendRequest{Identifier: "a@b.co", IdentifierType: domain.IdentifierEmail, AccountType: domain.AccountPathologyLab}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			svc := &mockOTPSvc{}
			svc.On("Send", mock.Anything, req).Return(nil, tc.err)

			rr := httptest.NewRecorder()
			NewOTPHandler(svc).Send(rr, httptest.NewRequest(http.MethodPost, "/v1/otp/send", jsonBody(t, req)))

			assert.Equal(t, tc.want, rr.Code)
			if tc.want == http.StatusInternalServerError {
				assert.NotContains(t, rr.Body.String(), "boom")
			}
		})
	}
}

// --- Verify ---

func TestOTPVerify_OK(t *testing.T) {
	svc := &mockOTPSvc{}
	req := otp.VerifyRequest{Identifier: "9876543210", OTP: "123456"}
	acc := &domain.Account{AccountID: "acc-1", Name: "Acme"}
	svc.On("Verify", mock.Anything, req).Return(&otp.VerifyResult{AccessToken: "tok", Account: acc}, nil)

	rr := httptest.NewRecorder()
	NewOTPHandler(svc).Verify(rr, httptest.NewRequest(http.MethodPost, "/v1/otp/verify", jsonBody(t, req)))

	assert.Equal(t, http.StatusOK, rr.Code)
	var env AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "tok", env.AccessToken)
	assert.Equal(t, "acc-1", env.Account.AccountID)
}

func TestOTPVerify_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrOTPNotFound, http.StatusNotFound},
		{domain.ErrOTPExpired, http.StatusGone},
		{domain.ErrOTPWrongState, http.StatusConflict},
		{domain.ErrIncorrectCode, http.StatusUnauthorized},
		{domain.ErrAttemptsExhausted, http.StatusTooManyRequests},
	}
	req := otp.VerifyRequest{Identifier: "9876543210", OTP: "000000"}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			svc := &mockOTPSvc{}
			svc.On("Verify", mock.Anything, req).Return(nil, tc.err)

			rr := httptest.NewRecorder()
			NewOTPHandler(svc).Verify(rr, httptest.NewRequest(http.MethodPost, "/v1/otp/verify", jsonBody(t, req)))

			assert.Equal(t, tc.want, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.err.Error())
		})
	}
}

func TestOTPVerify_MissingCode(t *testing.T) {
	rr := httptest.NewRecorder()
	body := map[string]string{"identifier": "9876543210"}
	NewOTPHandler(&mockOTPSvc{}).Verify(rr, httptest.NewRequest(http.MethodPost, "/v1/otp/verify", jsonBody(t, body)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "otp")
}
