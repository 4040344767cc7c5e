package tokens

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

const (
	AccessTokenName  = "access_token"
	RefreshTokenName = "refresh_token"
)

// ErrNoRefreshToken is returned when a refresh is requested but no refresh
// token has been seeded.
var ErrNoRefreshToken = errors.New("no refresh token stored")

// Credentials is the access/refresh token pair used for one reconciliation.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Token is one row of the tokens table.
type Token struct {
	Name      string    `dynamodbav:"name"` // PK
	Value     string    `dynamodbav:"value"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

// Store reads and writes the tokens table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new tokens Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Load reads both tokens. Missing rows yield empty strings.
func (s *Store) Load(ctx context.Context) (Credentials, error) {
	access, err := s.get(ctx, AccessTokenName)
	if err != nil {
		return Credentials{}, err
	}
	refresh, err := s.get(ctx, RefreshTokenName)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

// SaveAccessToken overwrites the stored access token.
func (s *Store) SaveAccessToken(ctx context.Context, value string) error {
	return s.put(ctx, AccessTokenName, value)
}

// SaveRefreshToken overwrites the stored refresh token. Only operators call this.
func (s *Store) SaveRefreshToken(ctx context.Context, value string) error {
	if value == "" {
		return ErrNoRefreshToken
	}
	return s.put(ctx, RefreshTokenName, value)
}

func (s *Store) get(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: name},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get %s: %w", name, err)
	}
	if len(out.Item) == 0 {
		return "", nil
	}
	var tok Token
	if err := attributevalue.UnmarshalMap(out.Item, &tok); err != nil {
		return "", fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return tok.Value, nil
}

func (s *Store) put(ctx context.Context, name, value string) error {
	item, err := attributevalue.MarshalMap(Token{Name: name, Value: value, UpdatedAt: s.nowFunc()})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}
