package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/immunopass-go/internal/domain"
)

type OrganizationRepo struct {
	api       API
	tableName string
}

func NewOrganizationRepo(api API, tableName string) *OrganizationRepo {
	return &OrganizationRepo{api: api, tableName: tableName}
}

func (r *OrganizationRepo) Put(ctx context.Context, o *domain.Organization) error {
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return fmt.Errorf("marshal organization: %w", err)
	}
	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *OrganizationRepo) Get(ctx context.Context, orgID string) (*domain.Organization, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("organization_id", orgID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("organization not found: %w", domain.ErrNotFound)
	}
	var o domain.Organization
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
