package tracks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imrishuroy/tracksync/internal/aws"
)

var (
	// ErrAlreadyResolved is returned when a record already carries a catalog URI
	// (or does not exist), so the write-once URI was left untouched.
	ErrAlreadyResolved = errors.New("track already resolved")

	// ErrURIMismatch is returned when a snapshot id is written for a URI that is
	// not the one stored on the record.
	ErrURIMismatch = errors.New("snapshot uri does not match stored uri")
)

// Store encapsulates operations on the tracks table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new tracks Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

func (s *Store) key(itemID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"item_id": &types.AttributeValueMemberS{Value: itemID},
	}
}

// CreateIfNotExists writes rec unless a record with the same item id exists.
// Returns (false, nil) when the record was already there.
func (s *Store) CreateIfNotExists(ctx context.Context, rec Record) (bool, error) {
	now := s.nowFunc()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	// resolution state is never set on creation
	rec.SpotifyURI = ""
	rec.SnapshotID = ""

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("marshal track: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(item_id)"),
	})
	if err != nil {
		if aws.IsConditionalCheckFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("put item: %w", err)
	}
	return true, nil
}

// Get fetches a track by item id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, itemID string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            s.key(itemID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal track: %w", err)
	}
	return &rec, nil
}

// SetSpotifyURI records the matched catalog URI. The URI is write-once:
// ErrAlreadyResolved is returned if one is already stored.
func (s *Store) SetSpotifyURI(ctx context.Context, itemID, uri string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 s.key(itemID),
		UpdateExpression:    aws.String("SET spotify_uri = :uri, updated_at = :ua"),
		ConditionExpression: aws.String("attribute_exists(item_id) AND attribute_not_exists(spotify_uri)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: uri},
			":ua":  &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		if aws.IsConditionalCheckFailed(err) {
			return ErrAlreadyResolved
		}
		return fmt.Errorf("update item (spotify uri): %w", err)
	}
	return nil
}

// SetSnapshotID records the playlist snapshot returned for uri. It only
// succeeds while the stored URI equals uri.
func (s *Store) SetSnapshotID(ctx context.Context, itemID, uri, snapshotID string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 s.key(itemID),
		UpdateExpression:    aws.String("SET spotify_playlist_snapshot_id = :snap, updated_at = :ua"),
		ConditionExpression: aws.String("spotify_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":snap": &types.AttributeValueMemberS{Value: snapshotID},
			":uri":  &types.AttributeValueMemberS{Value: uri},
			":ua":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		if aws.IsConditionalCheckFailed(err) {
			return ErrURIMismatch
		}
		return fmt.Errorf("update item (snapshot id): %w", err)
	}
	return nil
}

// ListUnresolved returns up to limit records that have no catalog URI yet.
// Scan filters after reading a page, so pages are followed until limit
// records are collected or the table is exhausted.
func (s *Store) ListUnresolved(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	var (
		out      []Record
		startKey map[string]types.AttributeValue
	)
	for {
		page, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &s.tableName,
			FilterExpression:  aws.String("attribute_not_exists(spotify_uri)"),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan unresolved: %w", err)
		}

		var recs []Record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("unmarshal tracks: %w", err)
		}
		out = append(out, recs...)

		if len(out) >= limit {
			return out[:limit], nil
		}
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}

