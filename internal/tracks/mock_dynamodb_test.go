package tracks

import (
	"context"
	"errors"
	"sort"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is a small in-memory tracks table. It understands exactly the
// condition and filter expressions Store issues.
type mockDynamo struct {
	mu        sync.Mutex
	items     map[string]map[string]types.AttributeValue
	pageSize  int // items examined per Scan call, 0 = all
	scanCalls int
	updates   []string // update expressions in call order
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func pk(m map[string]types.AttributeValue) (string, error) {
	v, ok := m["item_id"].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("missing item_id")
	}
	return v.Value, nil
}

func (m *mockDynamo) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := pk(in.Item)
	if err != nil {
		return nil, err
	}
	if in.ConditionExpression != nil && *in.ConditionExpression == "attribute_not_exists(item_id)" {
		if _, ok := m.items[k]; ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.items[k] = in.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := pk(in.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.items[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := pk(in.Key)
	if err != nil {
		return nil, err
	}
	item, exists := m.items[k]
	vals := in.ExpressionAttributeValues

	switch *in.ConditionExpression {
	case "attribute_exists(item_id) AND attribute_not_exists(spotify_uri)":
		if !exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
		if _, ok := item["spotify_uri"]; ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
		item["spotify_uri"] = vals[":uri"]
	case "spotify_uri = :uri":
		if !exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
		curr, ok := item["spotify_uri"].(*types.AttributeValueMemberS)
		if !ok || curr.Value != vals[":uri"].(*types.AttributeValueMemberS).Value {
			return nil, &types.ConditionalCheckFailedException{}
		}
		item["spotify_playlist_snapshot_id"] = vals[":snap"]
	default:
		return nil, errors.New("unexpected condition: " + *in.ConditionExpression)
	}
	item["updated_at"] = vals[":ua"]
	m.updates = append(m.updates, *in.UpdateExpression)
	return &dyn.UpdateItemOutput{}, nil
}

func (m *mockDynamo) Scan(ctx context.Context, in *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanCalls++

	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		last, err := pk(in.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		start = sort.SearchStrings(keys, last) + 1
	}
	end := len(keys)
	if m.pageSize > 0 && start+m.pageSize < end {
		end = start + m.pageSize
	}

	out := &dyn.ScanOutput{}
	for _, k := range keys[start:end] {
		item := m.items[k]
		if in.FilterExpression != nil && *in.FilterExpression == "attribute_not_exists(spotify_uri)" {
			if _, ok := item["spotify_uri"]; ok {
				continue
			}
		}
		out.Items = append(out.Items, item)
	}
	if end < len(keys) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"item_id": &types.AttributeValueMemberS{Value: keys[end-1]},
		}
	}
	return out, nil
}
