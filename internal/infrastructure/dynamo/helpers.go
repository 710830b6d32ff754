package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/immunopass-go/internal/domain"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// compositeKey builds a DynamoDB primary key with two string attributes (PK + SK).
func compositeKey(pkName, pkValue, skName, skValue string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		pkName: &types.AttributeValueMemberS{Value: pkValue},
		skName: &types.AttributeValueMemberS{Value: skValue},
	}
}

type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
// Fields are emitted in sorted order so the expression is stable.
func buildUpdateExpr(updates map[string]interface{}) (*updateExpr, error) {
	if len(updates) == 0 {
		return nil, errors.New("no fields to update")
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ue := &updateExpr{
		Expr:   "SET ",
		Names:  make(map[string]string, len(keys)),
		Values: make(map[string]types.AttributeValue, len(keys)),
	}
	for i, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		if i > 0 {
			ue.Expr += ", "
		}
		ue.Expr += nameKey + " = " + valueKey
	}
	return ue, nil
}

// versionedPut builds a PutItem that succeeds only if the stored row still
// carries prev as its version, or does not exist yet when prev is zero.
// The marshalled item carries prev+1.
func versionedPut(table, idAttr string, v interface{}, prev int64) (*dynamodb.PutItemInput, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, err
	}
	item["version"] = &types.AttributeValueMemberN{Value: fmt.Sprint(prev + 1)}

	in := &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	}
	if prev == 0 {
		in.ConditionExpression = aws.String("attribute_not_exists(#id)")
		in.ExpressionAttributeNames = map[string]string{"#id": idAttr}
		return in, nil
	}
	in.ConditionExpression = aws.String("#version = :prev")
	in.ExpressionAttributeNames = map[string]string{"#version": "version"}
	in.ExpressionAttributeValues = map[string]types.AttributeValue{
		":prev": &types.AttributeValueMemberN{Value: fmt.Sprint(prev)},
	}
	return in, nil
}

// saveVersioned writes v and bumps *version on success.
func saveVersioned(ctx context.Context, api API, table, idAttr string, v interface{}, version *int64) error {
	in, err := versionedPut(table, idAttr, v, *version)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", idAttr, err)
	}
	if _, err := api.PutItem(ctx, in); err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("%s modified concurrently: %w", idAttr, domain.ErrConflict)
		}
		return err
	}
	*version++
	return nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// cancelledBy reports which items of a cancelled transaction failed their condition.
func cancelledBy(err error) ([]bool, bool) {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return nil, false
	}
	failed := make([]bool, len(tce.CancellationReasons))
	for i, r := range tce.CancellationReasons {
		failed[i] = aws.ToString(r.Code) == "ConditionalCheckFailed"
	}
	return failed, true
}

// queryAll runs a query to completion, following LastEvaluatedKey.
func queryAll(ctx context.Context, api API, in *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	p := dynamodb.NewQueryPaginator(api, in)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
	}
	return items, nil
}
