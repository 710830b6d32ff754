package domain

import "time"

type OrderStatus string

const (
	OrderCreated    OrderStatus = "CREATED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderProcessed  OrderStatus = "PROCESSED"
)

type VoucherOrder struct {
	OrderID        string      `json:"id" dynamodbav:"order_id"`
	OrganizationID string      `json:"organization_id" dynamodbav:"organization_id"`
	Status         OrderStatus `json:"status" dynamodbav:"status"`
	UploadedFile   string      `json:"uploaded_file" dynamodbav:"uploaded_file"`
	VoucherCount   int         `json:"voucher_count" dynamodbav:"voucher_count"`
	DeliveredCount int         `json:"delivered_count" dynamodbav:"delivered_count"`
	FailedCount    int         `json:"failed_count" dynamodbav:"failed_count"`
	CreatedBy      string      `json:"created_by" dynamodbav:"created_by"`
	CreatedAt      time.Time   `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time   `json:"updated" dynamodbav:"updated_at"`
	Version        int64       `json:"-" dynamodbav:"version"`
}

// Allocation describes the organization quota consumed by a new order.
// Expected is the alloted count observed when the quota was checked; the store
// applies the allocation only if it is still current.
type Allocation struct {
	OrganizationID string
	Expected       int
	Count          int
}
