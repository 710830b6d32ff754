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

// OTPRepo stores issued passcodes.
// PK: identifier, SK: otp_id (ULID, so the newest record sorts last).
type OTPRepo struct {
	api       API
	tableName string
}

func NewOTPRepo(api API, tableName string) *OTPRepo {
	return &OTPRepo{api: api, tableName: tableName}
}

func (r *OTPRepo) Latest(ctx context.Context, identifier string) (*domain.OTPRecord, error) {
	out, err := r.api.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    aws.String("#i = :i"),
		ExpressionAttributeNames:  map[string]string{"#i": "identifier"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":i": &types.AttributeValueMemberS{Value: identifier}},
		ScanIndexForward:          aws.Bool(false),
		ConsistentRead:            aws.Bool(true),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	var o domain.OTPRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OTPRepo) Save(ctx context.Context, o *domain.OTPRecord) error {
	return saveVersioned(ctx, r.api, r.tableName, "otp_id", o, &o.Version)
}

// Get returns one record by its composite key.
func (r *OTPRepo) Get(ctx context.Context, identifier, otpID string) (*domain.OTPRecord, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            compositeKey("identifier", identifier, "otp_id", otpID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	var o domain.OTPRecord
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
