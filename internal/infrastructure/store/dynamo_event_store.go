package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// ConnectDynamo builds a DynamoDB client from the default credential chain.
func ConnectDynamo(ctx context.Context, region string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// metaVersion is the sort-key value reserved for the aggregate's version
// pointer item. Event versions are 1-based, so 0 never collides.
const metaVersion = 0

// DynamoEventStore stores events in DynamoDB. The table is keyed by
// (aggregate_id, version); item version 0 is the version pointer for the
// aggregate. Append uses TransactWriteItems so the pointer check and the
// event writes commit or fail as one unit.
type DynamoEventStore struct {
	client            *dynamodb.Client
	tableName         string
	snapshotTableName string
}

// dynamoEvent represents the DynamoDB item structure
type dynamoEvent struct {
	AggregateID   string `dynamodbav:"aggregate_id"`
	Version       int    `dynamodbav:"version"`
	ID            string `dynamodbav:"id"`
	AggregateType string `dynamodbav:"aggregate_type"`
	EventType     string `dynamodbav:"event_type"`
	Data          string `dynamodbav:"data"`
	CreatedAt     string `dynamodbav:"created_at"`
	GSI1PK        string `dynamodbav:"gsi1pk"`
}

func NewDynamoEventStore(client *dynamodb.Client, tableName, snapshotTableName string) *DynamoEventStore {
	return &DynamoEventStore{
		client:            client,
		tableName:         tableName,
		snapshotTableName: snapshotTableName,
	}
}

// Append stores events iff the aggregate's current version equals expectedVersion.
func (es *DynamoEventStore) Append(ctx context.Context, aggregateID, aggregateType string, events []EventData, expectedVersion int) ([]Event, error) {
	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	timestamp := time.Now()
	newVersion := expectedVersion + len(events)

	items := make([]types.TransactWriteItem, 0, len(events)+1)

	// Guarded advance of the version pointer item.
	update := &types.Update{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"aggregate_id": &types.AttributeValueMemberS{Value: aggregateID},
			"version":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", metaVersion)},
		},
		UpdateExpression: aws.String("SET current_version = :new, aggregate_type = :at, latest_event_data = :latest"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", newVersion)},
			":at":     &types.AttributeValueMemberS{Value: aggregateType},
			":latest": &types.AttributeValueMemberS{Value: string(events[len(events)-1].Data)},
		},
	}
	if expectedVersion == 0 {
		update.ConditionExpression = aws.String("attribute_not_exists(aggregate_id)")
	} else {
		update.ConditionExpression = aws.String("current_version = :expected")
		update.ExpressionAttributeValues[":expected"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedVersion)}
	}
	items = append(items, types.TransactWriteItem{Update: update})

	stored := make([]Event, 0, len(events))
	for i, e := range events {
		event := Event{
			ID:            uuid.New().String(),
			AggregateID:   aggregateID,
			AggregateType: aggregateType,
			EventType:     e.EventType,
			Data:          e.Data,
			Timestamp:     timestamp,
			Version:       expectedVersion + i + 1,
		}

		av, err := attributevalue.MarshalMap(dynamoEvent{
			AggregateID:   event.AggregateID,
			Version:       event.Version,
			ID:            event.ID,
			AggregateType: event.AggregateType,
			EventType:     event.EventType,
			Data:          string(event.Data),
			CreatedAt:     event.Timestamp.Format(time.RFC3339Nano),
			GSI1PK:        "EVENTS", // Fixed value for GSI1 to enable GetAllEvents
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event: %w", err)
		}

		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(es.tableName),
				Item:                av,
				ConditionExpression: aws.String("attribute_not_exists(aggregate_id)"),
			},
		})

		stored = append(stored, event)
	}

	_, err := es.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			for _, reason := range canceled.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return nil, ErrConcurrencyConflict
				}
			}
		}
		return nil, fmt.Errorf("failed to append events: %w", err)
	}

	return stored, nil
}

// GetEvents returns all events for an aggregate ordered by version ascending.
func (es *DynamoEventStore) GetEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	return es.GetEventsAfterVersion(ctx, aggregateID, metaVersion)
}

// GetEventsAfterVersion returns events with a version greater than version,
// ordered by version ascending. The version-pointer item is excluded by
// the key condition.
func (es *DynamoEventStore) GetEventsAfterVersion(ctx context.Context, aggregateID string, version int) ([]Event, error) {
	if version < metaVersion {
		version = metaVersion
	}

	result, err := es.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("aggregate_id = :aid AND version > :ver"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": &types.AttributeValueMemberS{Value: aggregateID},
			":ver": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", version)},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	return es.unmarshalEvents(result.Items)
}

// GetAllEvents returns all events using GSI1, ordered by creation time.
func (es *DynamoEventStore) GetAllEvents(ctx context.Context) ([]Event, error) {
	result, err := es.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("gsi1pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "EVENTS"},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query all events: %w", err)
	}

	return es.unmarshalEvents(result.Items)
}

func (es *DynamoEventStore) unmarshalEvents(items []map[string]types.AttributeValue) ([]Event, error) {
	events := make([]Event, 0, len(items))

	for _, item := range items {
		var de dynamoEvent
		if err := attributevalue.UnmarshalMap(item, &de); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}

		timestamp, _ := time.Parse(time.RFC3339Nano, de.CreatedAt)

		events = append(events, Event{
			ID:            de.ID,
			AggregateID:   de.AggregateID,
			AggregateType: de.AggregateType,
			EventType:     de.EventType,
			Data:          json.RawMessage(de.Data),
			Timestamp:     timestamp,
			Version:       de.Version,
		})
	}

	return events, nil
}

var _ EventStoreInterface = (*DynamoEventStore)(nil)
