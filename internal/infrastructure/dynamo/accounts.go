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

// AccountRepo reads accounts. PK: account_id, GSI identifier-index on identifier.
type AccountRepo struct {
	api       API
	tableName string
}

func NewAccountRepo(api API, tableName string) *AccountRepo {
	return &AccountRepo{api: api, tableName: tableName}
}

func (r *AccountRepo) Put(ctx context.Context, a *domain.Account) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *AccountRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("account_id", accountID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByIdentifier(ctx context.Context, identifier string, idType domain.IdentifierType) (*domain.Account, error) {
	items, err := queryAll(ctx, r.api, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("identifier-index"),
		KeyConditionExpression: aws.String("#i = :i"),
		FilterExpression:       aws.String("#t = :t"),
		ExpressionAttributeNames: map[string]string{
			"#i": "identifier",
			"#t": "identifier_type",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":i": &types.AttributeValueMemberS{Value: identifier},
			":t": &types.AttributeValueMemberS{Value: string(idType)},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(items[0], &a); err != nil {
		return nil, err
	}
	return &a, nil
}
