package domain

import "time"

type OTPStatus string

const (
	OTPUnverified OTPStatus = "UNVERIFIED"
	OTPVerified   OTPStatus = "VERIFIED"
	OTPInvalid    OTPStatus = "INVALID"
)

// OTPRecord is one issued passcode. Records are never deleted; the most
// recently created record for an identifier is the live one.
// PK: identifier, SK: otp_id (ULID, time ordered).
type OTPRecord struct {
	OTPID                string         `json:"id" dynamodbav:"otp_id"`
	Identifier           string         `json:"identifier" dynamodbav:"identifier"`
	IdentifierType       IdentifierType `json:"identifier_type" dynamodbav:"identifier_type"`
	Code                 string         `json:"-" dynamodbav:"code"`
	Status               OTPStatus      `json:"status" dynamodbav:"status"`
	RetryCount           int            `json:"retry_count" dynamodbav:"retry_count"`
	VerificationAttempts int            `json:"verification_attempts" dynamodbav:"verification_attempts"`
	ValidTill            time.Time      `json:"valid_till" dynamodbav:"valid_till"`
	CreatedAt            time.Time      `json:"created" dynamodbav:"created_at"`
	UpdatedAt            time.Time      `json:"updated" dynamodbav:"updated_at"`
	Version              int64          `json:"-" dynamodbav:"version"`
}

// Expired reports whether the record is past its validity window at now.
func (o *OTPRecord) Expired(now time.Time) bool {
	return !now.Before(o.ValidTill)
}
