package voucher

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/immunopass-go/internal/domain"
)

const (
	fieldCount   = 5
	maxFieldLen  = 40
	mobileDigits = 10
	fieldSep     = ","
)

// ValidateRecord normalizes one CSV data row of the form
// name,mobile,id-card-type,id-card-number,employee-id and returns the
// cleaned fields joined in the same order.
func ValidateRecord(line string) (string, error) {
	fields := strings.Split(line, fieldSep)
	if len(fields) != fieldCount {
		return "", domain.ErrMalformedRecord
	}

	name := strings.TrimSpace(keep(fields[0], isNameRune))
	if name == "" || utf8.RuneCountInString(name) > maxFieldLen {
		return "", domain.ErrInvalidName
	}

	mobile := keep(fields[1], isDigit)
	if len(mobile) != mobileDigits {
		return "", domain.ErrInvalidMobile
	}

	idType, ok := domain.ParseIDCardType(strings.TrimSpace(fields[2]))
	if !ok {
		return "", domain.ErrInvalidIDCardType
	}

	idNumber := strings.TrimSpace(fields[3])
	if idNumber == "" || utf8.RuneCountInString(idNumber) > maxFieldLen {
		return "", domain.ErrInvalidIDCardNumber
	}

	employeeID := strings.TrimSpace(fields[4])
	if employeeID == "" || utf8.RuneCountInString(employeeID) > maxFieldLen {
		return "", domain.ErrInvalidEmployeeID
	}

	return strings.Join([]string{name, mobile, string(idType), idNumber, employeeID}, fieldSep), nil
}

// Record is a validated beneficiary row.
type Record struct {
	Name       string
	Mobile     string
	IDCardType domain.IDCardType
	IDNumber   string
	EmployeeID string
}

// ParseRecord splits a line previously produced by ValidateRecord.
func ParseRecord(normalized string) (Record, error) {
	fields := strings.Split(normalized, fieldSep)
	if len(fields) != fieldCount {
		return Record{}, fmt.Errorf("stored record %q: %w", normalized, domain.ErrMalformedRecord)
	}
	return Record{
		Name:       fields[0],
		Mobile:     fields[1],
		IDCardType: domain.IDCardType(fields[2]),
		IDNumber:   fields[3],
		EmployeeID: fields[4],
	}, nil
}

func keep(s string, allowed func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if allowed(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isNameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == ' '
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
