package storage

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/user/netmon/internal/model"
)

// dynamoAPI is the subset of the DynamoDB client the store uses.
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// dynamoItem is the flattened row written to every kind's table. The sort
// key id is the insertion time in nanoseconds, kept strictly increasing.
type dynamoItem struct {
	UserID     int64   `dynamodbav:"user_id"`
	ID         int64   `dynamodbav:"id"`
	Timestamp  string  `dynamodbav:"timestamp"`
	Target     string  `dynamodbav:"target,omitempty"`
	AvgLatency float64 `dynamodbav:"avg_latency,omitempty"`
	PacketLoss float64 `dynamodbav:"packet_loss,omitempty"`
	Failure    string  `dynamodbav:"failure,omitempty"`
	URL        string  `dynamodbav:"url,omitempty"`
	Status     string  `dynamodbav:"status,omitempty"`
	Download   float64 `dynamodbav:"download,omitempty"`
	Upload     float64 `dynamodbav:"upload,omitempty"`
}

// DynamoStore implements Store on DynamoDB, one table per kind named
// <prefix><kind>_logs with partition key user_id and sort key id.
type DynamoStore struct {
	client dynamoAPI
	prefix string

	mu     sync.Mutex
	lastID int64
}

// OpenDynamoStore builds a client from the default AWS credential chain.
func OpenDynamoStore(ctx context.Context, region, tablePrefix string) (*DynamoStore, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewDynamoStore(dynamodb.NewFromConfig(cfg), tablePrefix), nil
}

// NewDynamoStore wraps an existing client.
func NewDynamoStore(client dynamoAPI, tablePrefix string) *DynamoStore {
	return &DynamoStore{client: client, prefix: tablePrefix}
}

func (s *DynamoStore) tableName(kind model.Kind) string {
	return s.prefix + kind.Table()
}

func (s *DynamoStore) nextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := time.Now().UnixNano()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Append implements Store.
func (s *DynamoStore) Append(ctx context.Context, e *model.LogEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	id := s.nextID()
	ts := time.Unix(0, id).UTC()

	item := dynamoItem{
		UserID:    e.UserID,
		ID:        id,
		Timestamp: ts.Format(time.RFC3339Nano),
	}
	switch e.Kind {
	case model.KindPing:
		item.Target = e.Ping.Target
		item.AvgLatency = e.Ping.AvgLatencyMs
		item.PacketLoss = e.Ping.PacketLossPct
		item.Failure = string(e.Ping.Failure)
	case model.KindUptime:
		item.URL = e.Uptime.URL
		item.Status = string(e.Uptime.Status)
	case model.KindBandwidth:
		item.Download = e.Bandwidth.DownloadMbps
		item.Upload = e.Bandwidth.UploadMbps
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal %s log: %w", e.Kind, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName(e.Kind)),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to store %s log in dynamodb: %w", e.Kind, err)
	}

	e.ID = id
	e.Timestamp = ts
	return nil
}

// Recent implements Store.
func (s *DynamoStore) Recent(ctx context.Context, kind model.Kind, userID int64, limit int) ([]model.LogEntry, error) {
	if _, err := model.ParseKind(string(kind)); err != nil {
		return nil, err
	}
	limit = kind.ClampLimit(limit)

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName(kind)),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberN{Value: strconv.FormatInt(userID, 10)},
		},
		ScanIndexForward: aws.Bool(false), // newest first
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s logs: %w", kind, err)
	}

	var items []dynamoItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s logs: %w", kind, err)
	}

	entries := make([]model.LogEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, it.toEntry(kind))
		if len(entries) == limit {
			break
		}
	}
	return entries, nil
}

// Close implements Store. The SDK client holds no resources to release.
func (s *DynamoStore) Close() error {
	return nil
}

func (it dynamoItem) toEntry(kind model.Kind) model.LogEntry {
	e := model.LogEntry{ID: it.ID, UserID: it.UserID, Kind: kind}
	if ts, err := time.Parse(time.RFC3339Nano, it.Timestamp); err == nil {
		e.Timestamp = ts
	} else {
		e.Timestamp = time.Unix(0, it.ID).UTC()
	}

	switch kind {
	case model.KindPing:
		e.Ping = &model.PingPayload{
			Target: it.Target,
			ProbeResult: model.ProbeResult{
				AvgLatencyMs:  it.AvgLatency,
				PacketLossPct: it.PacketLoss,
				Failure:       model.FailureReason(it.Failure),
			},
		}
	case model.KindUptime:
		e.Uptime = &model.UptimeResult{URL: it.URL, Status: model.UptimeStatus(it.Status)}
	case model.KindBandwidth:
		e.Bandwidth = &model.BandwidthSample{DownloadMbps: it.Download, UploadMbps: it.Upload}
	}
	return e
}
