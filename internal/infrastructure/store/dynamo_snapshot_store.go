package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// dynamoSnapshot represents the DynamoDB item structure for snapshots.
// Stored in a separate table with aggregate_id as partition key.
type dynamoSnapshot struct {
	AggregateID   string `dynamodbav:"aggregate_id"`
	AggregateType string `dynamodbav:"aggregate_type"`
	Version       int    `dynamodbav:"version"`
	State         string `dynamodbav:"state"`
	CreatedAt     string `dynamodbav:"created_at"`
}

// DynamoSnapshotStore keeps one snapshot item per aggregate.
type DynamoSnapshotStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoSnapshotStore(client *dynamodb.Client, tableName string) *DynamoSnapshotStore {
	return &DynamoSnapshotStore{client: client, tableName: tableName}
}

// Save upserts the snapshot. The condition expression is the
// compare-and-swap: a stale snapshot racing a newer one is discarded.
func (ss *DynamoSnapshotStore) Save(ctx context.Context, snapshot *Snapshot) error {
	item := dynamoSnapshot{
		AggregateID:   snapshot.AggregateID,
		AggregateType: snapshot.AggregateType,
		Version:       snapshot.Version,
		State:         string(snapshot.State),
		CreatedAt:     snapshot.CreatedAt.Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = ss.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(ss.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(aggregate_id) OR version < :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", snapshot.Version)},
		},
	})
	if err != nil {
		var failed *types.ConditionalCheckFailedException
		if errors.As(err, &failed) {
			// A newer snapshot is already stored.
			return nil
		}
		return fmt.Errorf("failed to put snapshot: %w", err)
	}

	return nil
}

// Load returns the latest snapshot for an aggregate, or nil if none exists.
func (ss *DynamoSnapshotStore) Load(ctx context.Context, aggregateID string) (*Snapshot, error) {
	result, err := ss.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(ss.tableName),
		Key: map[string]types.AttributeValue{
			"aggregate_id": &types.AttributeValueMemberS{Value: aggregateID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var ds dynamoSnapshot
	if err := attributevalue.UnmarshalMap(result.Item, &ds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, ds.CreatedAt)

	return &Snapshot{
		AggregateID:   ds.AggregateID,
		AggregateType: ds.AggregateType,
		Version:       ds.Version,
		State:         json.RawMessage(ds.State),
		CreatedAt:     createdAt,
	}, nil
}

var _ SnapshotStoreInterface = (*DynamoSnapshotStore)(nil)
