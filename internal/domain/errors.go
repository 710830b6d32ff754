package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// OTP workflow rejections. The messages are shown to the caller as-is.
var (
	ErrAccountNotFound   = errors.New("User account doesn't exist.")
	ErrNotLinked         = errors.New("User account isn't linked to any organization or pathology lab.")
	ErrRetryExhausted    = errors.New("Retry attempts over. Please try after 15 minutes.")
	ErrDeliveryFailed    = errors.New("Something went wrong while sending OTP.")
	ErrOTPNotFound       = errors.New("OTP not found. Please request a new OTP.")
	ErrOTPExpired        = errors.New("OTP has expired. Please request a new OTP.")
	ErrOTPWrongState     = errors.New("OTP is no longer valid. Please request a new OTP.")
	ErrIncorrectCode     = errors.New("OTP is incorrect.")
	ErrAttemptsExhausted = errors.New("OTP verification attempts over. Please request a new OTP.")
)

// Voucher order intake rejections.
var (
	ErrOrgInactive         = errors.New("User account isn't linked to any active organization.")
	ErrInvalidName         = errors.New("Name is invalid.")
	ErrInvalidMobile       = errors.New("Mobile phone number is invalid.")
	ErrInvalidIDCardType   = errors.New("Invalid Id Card Type.")
	ErrInvalidIDCardNumber = errors.New("Invalid Id Card Number.")
	ErrInvalidEmployeeID   = errors.New("Invalid Employee Id.")
	ErrMalformedRecord     = errors.New("Record must have exactly 5 comma separated fields.")
	ErrEmptyUpload         = errors.New("The uploaded file has no records.")
	ErrQuotaExceeded       = errors.New("The number of records present in the CSV file is greater than the available vouchers to the organization.")
	ErrUploadFailed        = errors.New("Error uploading the file to the server.")
)

// ErrCodeTaken is returned by voucher stores when a generated voucher code is already reserved.
var ErrCodeTaken = errors.New("voucher code already reserved")

// IsValidation reports whether err is one of the CSV record validation failures.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidName, ErrInvalidMobile, ErrInvalidIDCardType,
		ErrInvalidIDCardNumber, ErrInvalidEmployeeID, ErrMalformedRecord,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
