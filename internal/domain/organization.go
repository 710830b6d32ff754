package domain

type EntityStatus string

const (
	EntityActive   EntityStatus = "ACTIVE"
	EntityInactive EntityStatus = "INACTIVE"
)

type Organization struct {
	OrganizationID  string       `json:"id" dynamodbav:"organization_id"`
	Name            string       `json:"name" dynamodbav:"name"`
	Status          EntityStatus `json:"status" dynamodbav:"status"`
	TotalVouchers   int          `json:"total_vouchers" dynamodbav:"total_vouchers"`
	AllotedVouchers int          `json:"alloted_vouchers" dynamodbav:"alloted_vouchers"`
}

// RemainingVouchers is the capacity still available for new orders.
func (o *Organization) RemainingVouchers() int {
	return o.TotalVouchers - o.AllotedVouchers
}
