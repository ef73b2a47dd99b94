package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/clayhaus/bookingbot/pkg/logging"
)

// ErrNotFound indicates no live draft exists for the customer.
var ErrNotFound = errors.New("session: draft not found")

// Store persists reservation drafts keyed by customer ID.
type Store interface {
	Get(ctx context.Context, customerID string) (*ReservationDraft, error)
	Put(ctx context.Context, draft *ReservationDraft) error
	Delete(ctx context.Context, customerID string) error
}

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoStore keeps drafts in a DynamoDB table with a TTL attribute so
// abandoned conversations age out on their own.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	idleTTL   time.Duration
	now       func() time.Time
	logger    *logging.Logger
}

var _ Store = (*DynamoStore)(nil)

// NewDynamoStore builds a store backed by the provided DynamoDB client.
func NewDynamoStore(client dynamoAPI, tableName string, idleTTL time.Duration, logger *logging.Logger) *DynamoStore {
	if client == nil {
		panic("session: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("session: table name cannot be empty")
	}
	if idleTTL <= 0 {
		idleTTL = 2 * time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &DynamoStore{
		client:    client,
		tableName: tableName,
		idleTTL:   idleTTL,
		now:       time.Now,
		logger:    logger,
	}
}

// Get fetches the customer's draft. A record whose TTL has lapsed is treated
// as absent even if DynamoDB has not reaped it yet.
func (s *DynamoStore) Get(ctx context.Context, customerID string) (*ReservationDraft, error) {
	if customerID == "" {
		return nil, errors.New("session: customerID required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"customerId": &types.AttributeValueMemberS{Value: customerID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("session: failed to fetch draft: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var draft ReservationDraft
	if err := attributevalue.UnmarshalMap(out.Item, &draft); err != nil {
		return nil, fmt.Errorf("session: failed to decode draft: %w", err)
	}
	if draft.ExpiresAt > 0 && draft.ExpiresAt <= s.now().Unix() {
		s.logger.Info("session: draft expired", "customer_id", customerID)
		return nil, ErrNotFound
	}
	return &draft, nil
}

// Put writes the draft and refreshes its idle TTL.
func (s *DynamoStore) Put(ctx context.Context, draft *ReservationDraft) error {
	if draft == nil {
		return errors.New("session: draft cannot be nil")
	}
	if draft.CustomerID == "" {
		return errors.New("session: customerID required")
	}
	now := s.now().UTC()
	if draft.CreatedAt == "" {
		draft.CreatedAt = now.Format(time.RFC3339Nano)
	}
	draft.UpdatedAt = now.Format(time.RFC3339Nano)
	draft.ExpiresAt = now.Add(s.idleTTL).Unix()

	item, err := attributevalue.MarshalMap(draft)
	if err != nil {
		return fmt.Errorf("session: failed to marshal draft: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("session: failed to persist draft: %w", err)
	}
	return nil
}

// Delete removes the customer's draft.
func (s *DynamoStore) Delete(ctx context.Context, customerID string) error {
	if customerID == "" {
		return errors.New("session: customerID required")
	}
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"customerId": &types.AttributeValueMemberS{Value: customerID},
		},
	})
	if err != nil {
		return fmt.Errorf("session: failed to delete draft: %w", err)
	}
	return nil
}
