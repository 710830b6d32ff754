package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/immunopass-go/internal/domain"
)

// OrderRepo stores voucher orders. PK: order_id, GSI status-index on (status, order_id).
// Creating an order also moves the owning organization's alloted counter,
// so the repo needs both table names.
type OrderRepo struct {
	api       API
	tableName string
	orgTable  string
}

func NewOrderRepo(api API, tableName, orgTable string) *OrderRepo {
	return &OrderRepo{api: api, tableName: tableName, orgTable: orgTable}
}

// Create writes the order and bumps alloted_vouchers in one transaction.
// The organization update only applies if alloted_vouchers still equals
// alloc.Expected, the organization is ACTIVE and the new total fits.
func (r *OrderRepo) Create(ctx context.Context, o *domain.VoucherOrder, alloc domain.Allocation) error {
	o.Version = 1
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		o.Version = 0
		return fmt.Errorf("marshal order: %w", err)
	}

	next := alloc.Expected + alloc.Count
	ue, err := buildUpdateExpr(map[string]interface{}{"alloted_vouchers": next})
	if err != nil {
		o.Version = 0
		return err
	}
	ue.Names["#status"] = "status"
	ue.Names["#total"] = "total_vouchers"
	ue.Values[":expected"] = &types.AttributeValueMemberN{Value: strconv.Itoa(alloc.Expected)}
	ue.Values[":active"] = &types.AttributeValueMemberS{Value: string(domain.EntityActive)}
	// #f0 is alloted_vouchers, the only updated field.
	cond := "#f0 = :expected AND #status = :active AND #total >= :v0"

	_, err = r.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     item,
				ConditionExpression:      aws.String("attribute_not_exists(#id)"),
				ExpressionAttributeNames: map[string]string{"#id": "order_id"},
			}},
			{Update: &types.Update{
				TableName:                 aws.String(r.orgTable),
				Key:                       strKey("organization_id", alloc.OrganizationID),
				UpdateExpression:          aws.String(ue.Expr),
				ConditionExpression:       aws.String(cond),
				ExpressionAttributeNames:  ue.Names,
				ExpressionAttributeValues: ue.Values,
			}},
		},
	})
	if err != nil {
		o.Version = 0
		if _, cancelled := cancelledBy(err); cancelled {
			return fmt.Errorf("allocate %d vouchers for %s: %w", alloc.Count, alloc.OrganizationID, domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, orderID string) (*domain.VoucherOrder, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("order_id", orderID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("order not found: %w", domain.ErrNotFound)
	}
	var o domain.VoucherOrder
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByStatus returns every order in status, oldest first.
func (r *OrderRepo) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.VoucherOrder, error) {
	items, err := queryAll(ctx, r.api, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("status-index"),
		KeyConditionExpression:    aws.String("#s = :s"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":s": &types.AttributeValueMemberS{Value: string(status)}},
	})
	if err != nil {
		return nil, err
	}
	var orders []domain.VoucherOrder
	if err := attributevalue.UnmarshalListOfMaps(items, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepo) Save(ctx context.Context, o *domain.VoucherOrder) error {
	return saveVersioned(ctx, r.api, r.tableName, "order_id", o, &o.Version)
}
