package activeindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the subset of the DynamoDB API a DynamoDBTable needs,
// narrowed from *dynamodb.Client so tests can supply a fake.
type DDBClient interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// ErrConcurrentPromotion is returned when two promotions race and one
// loses the conditional write.
var ErrConcurrentPromotion = errors.New("activeindex: concurrent promotion detected")

// DynamoDBTable resolves and promotes a Pointer stored as a single item
// in a DynamoDB table, keyed by a fixed partition key. The version
// attribute doubles as an optimistic-concurrency token: Promote only
// succeeds if it still matches the version Promote last observed.
type DynamoDBTable struct {
	client    DDBClient
	tableName string
	key       string
}

// NewDynamoDBTable creates a DynamoDBTable-backed Promoter. key is the
// fixed partition key value identifying the single pointer item (callers
// serving more than one index family use one table with distinct keys,
// one per family).
func NewDynamoDBTable(client DDBClient, tableName, key string) *DynamoDBTable {
	return &DynamoDBTable{client: client, tableName: tableName, key: key}
}

// Resolve reads the current Pointer item.
func (t *DynamoDBTable) Resolve(ctx context.Context) (Pointer, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.tableName),
		Key: map[string]types.AttributeValue{
			"pointer_key": &types.AttributeValueMemberS{Value: t.key},
		},
	})
	if err != nil {
		return Pointer{}, fmt.Errorf("activeindex: GetItem: %w", err)
	}
	if len(out.Item) == 0 {
		return Pointer{}, ErrNoActivePointer
	}
	return itemToPointer(out.Item)
}

// Promote atomically replaces the Pointer item, conditioned on the
// version this call observes via a preceding Resolve still being current.
func (t *DynamoDBTable) Promote(ctx context.Context, path string) (Pointer, error) {
	prev, err := t.Resolve(ctx)
	if err != nil && !errors.Is(err, ErrNoActivePointer) {
		return Pointer{}, err
	}

	next := Pointer{Path: path, Version: prev.Version + 1, UpdatedAt: time.Now().UTC()}

	condition := "attribute_not_exists(version)"
	values := map[string]types.AttributeValue{}
	if prev.Version > 0 {
		condition = "version = :prev"
		values[":prev"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", prev.Version)}
	}

	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(t.tableName),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeValues: values,
		Item: map[string]types.AttributeValue{
			"pointer_key": &types.AttributeValueMemberS{Value: t.key},
			"path":        &types.AttributeValueMemberS{Value: next.Path},
			"version":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", next.Version)},
			"updated_at":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", next.UpdatedAt.Unix())},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return Pointer{}, ErrConcurrentPromotion
		}
		return Pointer{}, fmt.Errorf("activeindex: PutItem: %w", err)
	}
	return next, nil
}

func itemToPointer(item map[string]types.AttributeValue) (Pointer, error) {
	path, ok := item["path"].(*types.AttributeValueMemberS)
	if !ok {
		return Pointer{}, errors.New("activeindex: item missing string attribute \"path\"")
	}
	version, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return Pointer{}, errors.New("activeindex: item missing numeric attribute \"version\"")
	}
	var v int64
	if _, err := fmt.Sscanf(version.Value, "%d", &v); err != nil {
		return Pointer{}, fmt.Errorf("activeindex: parsing version: %w", err)
	}

	var updatedAt time.Time
	if ua, ok := item["updated_at"].(*types.AttributeValueMemberN); ok {
		var sec int64
		if _, err := fmt.Sscanf(ua.Value, "%d", &sec); err == nil {
			updatedAt = time.Unix(sec, 0).UTC()
		}
	}

	return Pointer{Path: path.Value, Version: v, UpdatedAt: updatedAt}, nil
}
