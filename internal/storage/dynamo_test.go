package storage

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/user/netmon/internal/model"
)

// fakeDynamo keeps items per table and answers user_id key queries.
type fakeDynamo struct {
	mu      sync.Mutex
	tables  map[string][]map[string]types.AttributeValue
	failPut error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{tables: make(map[string][]map[string]types.AttributeValue)}
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.failPut != nil {
		return nil, f.failPut
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	table := aws.ToString(in.TableName)
	f.tables[table] = append(f.tables[table], in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func numAttr(av types.AttributeValue) int64 {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	v, _ := strconv.ParseInt(n.Value, 10, 64)
	return v
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	uid := numAttr(in.ExpressionAttributeValues[":uid"])
	var items []map[string]types.AttributeValue
	for _, it := range f.tables[aws.ToString(in.TableName)] {
		if numAttr(it["user_id"]) == uid {
			items = append(items, it)
		}
	}

	forward := in.ScanIndexForward == nil || *in.ScanIndexForward
	sort.Slice(items, func(i, j int) bool {
		a, b := numAttr(items[i]["id"]), numAttr(items[j]["id"])
		if forward {
			return a < b
		}
		return a > b
	})
	if in.Limit != nil && int(*in.Limit) < len(items) {
		items = items[:*in.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func TestDynamoStore_AppendRecent(t *testing.T) {
	t.Parallel()

	fake := newFakeDynamo()
	s := NewDynamoStore(fake, "test_")
	ctx := context.Background()

	var last int64
	for i := 0; i < 23; i++ {
		e := pingEntry(4, i)
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if e.ID <= last {
			t.Fatalf("id not increasing: %d after %d", e.ID, last)
		}
		last = e.ID
	}
	if err := s.Append(ctx, pingEntry(5, 100)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if _, ok := fake.tables["test_ping_logs"]; !ok {
		t.Fatalf("tables=%v", fake.tables)
	}

	got, err := s.Recent(ctx, model.KindPing, 4, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].Ping.Target != "host-22" || got[19].Ping.Target != "host-3" {
		t.Fatalf("order: first=%s last=%s", got[0].Ping.Target, got[19].Ping.Target)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Fatalf("timestamps increase at %d", i)
		}
		if got[i].UserID != 4 {
			t.Fatalf("foreign entry: %+v", got[i])
		}
	}
}

func TestDynamoStore_Payloads(t *testing.T) {
	t.Parallel()

	s := NewDynamoStore(newFakeDynamo(), "")
	ctx := context.Background()

	if err := s.Append(ctx, model.NewUptimeEntry(1, model.UptimeResult{URL: "example.com", Status: model.StatusOnline})); err != nil {
		t.Fatalf("Append uptime: %v", err)
	}
	if err := s.Append(ctx, model.NewBandwidthEntry(1, model.BandwidthSample{DownloadMbps: 75.5, UploadMbps: 20.25})); err != nil {
		t.Fatalf("Append bandwidth: %v", err)
	}

	up, err := s.Recent(ctx, model.KindUptime, 1, 0)
	if err != nil || len(up) != 1 || *up[0].Uptime != (model.UptimeResult{URL: "example.com", Status: model.StatusOnline}) {
		t.Fatalf("uptime=%+v err=%v", up, err)
	}
	bw, err := s.Recent(ctx, model.KindBandwidth, 1, 0)
	if err != nil || len(bw) != 1 || bw[0].Bandwidth.DownloadMbps != 75.5 || bw[0].Bandwidth.UploadMbps != 20.25 {
		t.Fatalf("bandwidth=%+v err=%v", bw, err)
	}
}

func TestDynamoStore_Errors(t *testing.T) {
	t.Parallel()

	fake := newFakeDynamo()
	fake.failPut = errors.New("ProvisionedThroughputExceededException")
	s := NewDynamoStore(fake, "")
	ctx := context.Background()

	e := pingEntry(1, 1)
	if err := s.Append(ctx, e); err == nil || e.ID != 0 {
		t.Fatalf("err=%v id=%d", err, e.ID)
	}
	if err := s.Append(ctx, pingEntry(-1, 1)); !errors.Is(err, model.ErrInvalidEntry) {
		t.Fatalf("invalid err=%v", err)
	}
	if _, err := s.Recent(ctx, model.Kind("dns"), 1, 0); !errors.Is(err, model.ErrUnknownKind) {
		t.Fatalf("kind err=%v", err)
	}
}

func TestDynamoStore_RecentCappedAtWindow(t *testing.T) {
	t.Parallel()

	s := NewDynamoStore(newFakeDynamo(), "")
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if err := s.Append(ctx, model.NewBandwidthEntry(1, model.BandwidthSample{DownloadMbps: 50 + float64(i)})); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	limits := []int{math.MaxInt, 11}
	if strconv.IntSize == 64 {
		var wide int64 = 1<<32 + 1
		limits = append(limits, int(wide))
	}
	for _, limit := range limits {
		got, err := s.Recent(ctx, model.KindBandwidth, 1, limit)
		if err != nil || len(got) != 10 {
			t.Fatalf("limit %d: len=%d err=%v", limit, len(got), err)
		}
		if got[0].Bandwidth.DownloadMbps != 61 {
			t.Fatalf("limit %d: newest=%+v", limit, got[0].Bandwidth)
		}
	}
}
