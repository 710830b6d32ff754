package domain

import "time"

type VoucherStatus string

const (
	VoucherAllotted  VoucherStatus = "ALLOTTED"
	VoucherProcessed VoucherStatus = "PROCESSED"
	// VoucherFailed is terminal: delivery attempts reached the configured ceiling.
	VoucherFailed VoucherStatus = "FAILED"
)

// IDCardType enumerates the government id documents accepted on upload.
// Values are matched case-sensitively.
type IDCardType string

const (
	IDCardAadhar         IDCardType = "Aadhar"
	IDCardPAN            IDCardType = "PAN"
	IDCardPassport       IDCardType = "Passport"
	IDCardDrivingLicence IDCardType = "DrivingLicence"
	IDCardVoterID        IDCardType = "VoterId"
)

var idCardTypes = map[IDCardType]struct{}{
	IDCardAadhar:         {},
	IDCardPAN:            {},
	IDCardPassport:       {},
	IDCardDrivingLicence: {},
	IDCardVoterID:        {},
}

// ParseIDCardType returns the matching IDCardType and whether it is known.
func ParseIDCardType(s string) (IDCardType, bool) {
	t := IDCardType(s)
	_, ok := idCardTypes[t]
	return t, ok
}

type Voucher struct {
	VoucherID         string        `json:"id" dynamodbav:"voucher_id"`
	VoucherCode       string        `json:"voucher_code" dynamodbav:"voucher_code"`
	OrderID           string        `json:"order_id" dynamodbav:"order_id"`
	RowIndex          int           `json:"row_index" dynamodbav:"row_index"`
	UserName          string        `json:"user_name" dynamodbav:"user_name"`
	UserMobile        string        `json:"user_mobile" dynamodbav:"user_mobile"`
	UserIDCardType    IDCardType    `json:"user_id_card_type" dynamodbav:"user_id_card_type"`
	UserIDCardNumber  string        `json:"user_id_card_number" dynamodbav:"user_id_card_number"`
	UserEmployeeID    string        `json:"user_employee_id" dynamodbav:"user_employee_id"`
	Status            VoucherStatus `json:"status" dynamodbav:"status"`
	IssuerID          string        `json:"issuer_id" dynamodbav:"issuer_id"`
	RetryCount        int           `json:"retry_count" dynamodbav:"retry_count"`
	LastFailureReason *string       `json:"last_failure_reason,omitempty" dynamodbav:"last_failure_reason"`
	CreatedAt         time.Time     `json:"created" dynamodbav:"created_at"`
	UpdatedAt         time.Time     `json:"updated" dynamodbav:"updated_at"`
	Version           int64         `json:"-" dynamodbav:"version"`
}
