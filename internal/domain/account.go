package domain

type IdentifierType string

const (
	IdentifierMobile IdentifierType = "MOBILE"
	IdentifierEmail  IdentifierType = "EMAIL"
)

type AccountType string

const (
	AccountOrganization AccountType = "ORGANIZATION"
	AccountPathologyLab AccountType = "PATHOLOGY_LAB"
)

type Account struct {
	AccountID      string         `json:"id" dynamodbav:"account_id"`
	Identifier     string         `json:"identifier" dynamodbav:"identifier"`
	IdentifierType IdentifierType `json:"identifier_type" dynamodbav:"identifier_type"`
	AccountType    AccountType    `json:"account_type" dynamodbav:"account_type"`
	OrganizationID *string        `json:"organization_id,omitempty" dynamodbav:"organization_id,omitempty"`
	PathologyLabID *string        `json:"pathology_lab_id,omitempty" dynamodbav:"pathology_lab_id,omitempty"`
	Name           string         `json:"name" dynamodbav:"name"`
}

// LinkedTo reports whether the account carries the reference required to
// authenticate as accountType.
func (a *Account) LinkedTo(accountType AccountType) bool {
	switch accountType {
	case AccountOrganization:
		return a.OrganizationID != nil && *a.OrganizationID != ""
	case AccountPathologyLab:
		return a.PathologyLabID != nil && *a.PathologyLabID != ""
	default:
		return false
	}
}

// AccountContext is the caller identity resolved by the request layer and
// passed explicitly into order intake.
type AccountContext struct {
	AccountID      string
	OrganizationID string
}
