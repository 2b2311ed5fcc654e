package activeindex

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

// fakeDDBClient is an in-memory single-item DynamoDB stand-in keyed by
// pointer_key, enough to exercise DynamoDBTable's conditional writes.
type fakeDDBClient struct {
	mu   sync.Mutex
	item map[string]types.AttributeValue
}

func (f *fakeDDBClient) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.item == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

func (f *fakeDDBClient) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if in.ConditionExpression != nil {
		switch *in.ConditionExpression {
		case "attribute_not_exists(version)":
			if f.item != nil {
				return nil, &types.ConditionalCheckFailedException{Message: aws.String("already exists")}
			}
		case "version = :prev":
			want := in.ExpressionAttributeValues[":prev"].(*types.AttributeValueMemberN).Value
			if f.item == nil || f.item["version"].(*types.AttributeValueMemberN).Value != want {
				return nil, &types.ConditionalCheckFailedException{Message: aws.String("version mismatch")}
			}
		}
	}
	f.item = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func TestDynamoDBTable_ResolveNoPointerYet(t *testing.T) {
	table := NewDynamoDBTable(&fakeDDBClient{}, "active-index", "prod")

	_, err := table.Resolve(context.Background())
	require.ErrorIs(t, err, ErrNoActivePointer)
}

func TestDynamoDBTable_PromoteThenResolve(t *testing.T) {
	client := &fakeDDBClient{}
	table := NewDynamoDBTable(client, "active-index", "prod")

	p, err := table.Promote(context.Background(), "indexes/2026-08-06.awoo")
	require.NoError(t, err)
	require.Equal(t, int64(1), p.Version)

	got, err := table.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, "indexes/2026-08-06.awoo", got.Path)
	require.Equal(t, int64(1), got.Version)
}

func TestDynamoDBTable_SuccessivePromotionsBumpVersion(t *testing.T) {
	client := &fakeDDBClient{}
	table := NewDynamoDBTable(client, "active-index", "prod")

	_, err := table.Promote(context.Background(), "indexes/v1.awoo")
	require.NoError(t, err)
	second, err := table.Promote(context.Background(), "indexes/v2.awoo")
	require.NoError(t, err)

	require.Equal(t, int64(2), second.Version)
	require.Equal(t, "indexes/v2.awoo", second.Path)
}

func TestDynamoDBTable_ConcurrentPromotionLoses(t *testing.T) {
	// A stale writer's PutItem carries the version it last resolved (1),
	// but the item has already moved to version 3 by the time it lands.
	client := &fakeDDBClient{item: map[string]types.AttributeValue{
		"pointer_key": &types.AttributeValueMemberS{Value: "prod"},
		"path":        &types.AttributeValueMemberS{Value: "indexes/v3.awoo"},
		"version":     &types.AttributeValueMemberN{Value: "3"},
	}}

	_, err := client.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName:           aws.String("active-index"),
		ConditionExpression: aws.String("version = :prev"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prev": &types.AttributeValueMemberN{Value: "1"},
		},
		Item: map[string]types.AttributeValue{
			"pointer_key": &types.AttributeValueMemberS{Value: "prod"},
			"path":        &types.AttributeValueMemberS{Value: "indexes/v2-stale.awoo"},
			"version":     &types.AttributeValueMemberN{Value: "2"},
		},
	})

	var condErr *types.ConditionalCheckFailedException
	require.ErrorAs(t, err, &condErr)
}
