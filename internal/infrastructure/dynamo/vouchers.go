package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/immunopass-go/internal/domain"
)

// VoucherRepo stores vouchers. PK: voucher_id, GSI order_id-index on (order_id, row_index).
// Codes are reserved in a separate table keyed by voucher_code.
type VoucherRepo struct {
	api       API
	tableName string
	codeTable string
}

func NewVoucherRepo(api API, tableName, codeTable string) *VoucherRepo {
	return &VoucherRepo{api: api, tableName: tableName, codeTable: codeTable}
}

// Create writes the voucher and its code reservation atomically.
// ErrConflict: the voucher id exists. ErrCodeTaken: the code is reserved.
func (r *VoucherRepo) Create(ctx context.Context, v *domain.Voucher) error {
	v.Version = 1
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		v.Version = 0
		return fmt.Errorf("marshal voucher: %w", err)
	}
	_, err = r.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     item,
				ConditionExpression:      aws.String("attribute_not_exists(#id)"),
				ExpressionAttributeNames: map[string]string{"#id": "voucher_id"},
			}},
			{Put: &types.Put{
				TableName: aws.String(r.codeTable),
				Item: map[string]types.AttributeValue{
					"voucher_code": &types.AttributeValueMemberS{Value: v.VoucherCode},
					"voucher_id":   &types.AttributeValueMemberS{Value: v.VoucherID},
				},
				ConditionExpression:      aws.String("attribute_not_exists(#code)"),
				ExpressionAttributeNames: map[string]string{"#code": "voucher_code"},
			}},
		},
	})
	if err == nil {
		return nil
	}
	v.Version = 0
	failed, cancelled := cancelledBy(err)
	switch {
	case cancelled && len(failed) > 0 && failed[0]:
		return fmt.Errorf("voucher %s: %w", v.VoucherID, domain.ErrConflict)
	case cancelled && len(failed) > 1 && failed[1]:
		return fmt.Errorf("voucher %s: %w", v.VoucherID, domain.ErrCodeTaken)
	}
	return err
}

// ListByOrder returns the vouchers of an order in CSV row order. It reads the
// order_id-index GSI, which is eventually consistent: a voucher saved moments
// ago may still show its previous status.
func (r *VoucherRepo) ListByOrder(ctx context.Context, orderID string) ([]domain.Voucher, error) {
	items, err := queryAll(ctx, r.api, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("order_id-index"),
		KeyConditionExpression:    aws.String("#o = :o"),
		ExpressionAttributeNames:  map[string]string{"#o": "order_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":o": &types.AttributeValueMemberS{Value: orderID}},
	})
	if err != nil {
		return nil, err
	}
	var vouchers []domain.Voucher
	if err := attributevalue.UnmarshalListOfMaps(items, &vouchers); err != nil {
		return nil, err
	}
	return vouchers, nil
}

func (r *VoucherRepo) Save(ctx context.Context, v *domain.Voucher) error {
	return saveVersioned(ctx, r.api, r.tableName, "voucher_id", v, &v.Version)
}
