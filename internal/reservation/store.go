package reservation

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

// ErrNotFound indicates the requested reservation does not exist.
var ErrNotFound = errors.New("reservation: not found")

// Store persists reservations.
type Store interface {
	Create(ctx context.Context, r *Reservation) error
	Get(ctx context.Context, reservationID string) (*Reservation, error)
	// MarkDecided flips a pending reservation to the given status. It
	// returns false without error when the reservation was not pending,
	// which makes decisions idempotent.
	MarkDecided(ctx context.Context, reservationID string, status Status) (bool, error)
	// MarkReminded flips the reminded flag true-once; false means another
	// sweep already claimed it.
	MarkReminded(ctx context.Context, reservationID string) (bool, error)
	AttachCalendarEvent(ctx context.Context, reservationID, eventID string) error
	// ListDueReminders returns confirmed, unreminded reservations starting
	// within [from, to).
	ListDueReminders(ctx context.Context, from, to time.Time) ([]Reservation, error)
}

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore persists reservations to a DynamoDB table.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

var _ Store = (*DynamoStore)(nil)

// NewDynamoStore builds a store backed by the provided DynamoDB client.
func NewDynamoStore(client dynamoAPI, tableName string, logger *logging.Logger) *DynamoStore {
	if client == nil {
		panic("reservation: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("reservation: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &DynamoStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Create inserts a new reservation record.
func (s *DynamoStore) Create(ctx context.Context, r *Reservation) error {
	if r == nil {
		return errors.New("reservation: record cannot be nil")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	r.CreatedAt = now
	r.UpdatedAt = now

	item, err := attributevalue.MarshalMap(r)
	if err != nil {
		return fmt.Errorf("reservation: failed to marshal record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(reservationId)"),
	})
	if err != nil {
		return fmt.Errorf("reservation: failed to persist record: %w", err)
	}
	return nil
}

// Get fetches a reservation by ID.
func (s *DynamoStore) Get(ctx context.Context, reservationID string) (*Reservation, error) {
	if reservationID == "" {
		return nil, errors.New("reservation: reservationID required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"reservationId": &types.AttributeValueMemberS{Value: reservationID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("reservation: failed to fetch record: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var r Reservation
	if err := attributevalue.UnmarshalMap(out.Item, &r); err != nil {
		return nil, fmt.Errorf("reservation: failed to decode record: %w", err)
	}
	return &r, nil
}

// MarkDecided conditionally moves a pending reservation to its final status.
func (s *DynamoStore) MarkDecided(ctx context.Context, reservationID string, status Status) (bool, error) {
	if reservationID == "" {
		return false, errors.New("reservation: reservationID required")
	}
	if status != StatusConfirmed && status != StatusRejected && status != StatusCancelled {
		return false, fmt.Errorf("reservation: invalid decision status %q", status)
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"reservationId": &types.AttributeValueMemberS{Value: reservationID},
		},
		UpdateExpression: aws.String("SET #status = :status, reminded = :reminded, #updated = :updated"),
		ExpressionAttributeNames: map[string]string{
			"#status":  "status",
			"#updated": "updatedAt",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":   &types.AttributeValueMemberS{Value: string(status)},
			":reminded": &types.AttributeValueMemberBOOL{Value: false},
			":updated":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
			":pending":  &types.AttributeValueMemberS{Value: string(StatusPending)},
		},
		ConditionExpression: aws.String("attribute_exists(reservationId) AND #status = :pending"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return false, nil
		}
		return false, fmt.Errorf("reservation: failed to decide %s: %w", reservationID, err)
	}
	return true, nil
}

// MarkReminded flips the reminded flag exactly once.
func (s *DynamoStore) MarkReminded(ctx context.Context, reservationID string) (bool, error) {
	if reservationID == "" {
		return false, errors.New("reservation: reservationID required")
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"reservationId": &types.AttributeValueMemberS{Value: reservationID},
		},
		UpdateExpression: aws.String("SET reminded = :true, #updated = :updated"),
		ExpressionAttributeNames: map[string]string{
			"#updated": "updatedAt",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true":    &types.AttributeValueMemberBOOL{Value: true},
			":false":   &types.AttributeValueMemberBOOL{Value: false},
			":updated": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: aws.String("attribute_exists(reservationId) AND reminded = :false"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return false, nil
		}
		return false, fmt.Errorf("reservation: failed to mark reminded %s: %w", reservationID, err)
	}
	return true, nil
}

// AttachCalendarEvent records the calendar event written on approval.
func (s *DynamoStore) AttachCalendarEvent(ctx context.Context, reservationID, eventID string) error {
	if reservationID == "" || eventID == "" {
		return errors.New("reservation: reservationID and eventID required")
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"reservationId": &types.AttributeValueMemberS{Value: reservationID},
		},
		UpdateExpression: aws.String("SET calendarEventId = :event"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":event": &types.AttributeValueMemberS{Value: eventID},
		},
		ConditionExpression: aws.String("attribute_exists(reservationId)"),
	})
	if err != nil {
		return fmt.Errorf("reservation: failed to attach calendar event: %w", err)
	}
	return nil
}

// ListDueReminders scans for confirmed, unreminded reservations starting in
// the window. The table stays small enough for a filtered scan.
func (s *DynamoStore) ListDueReminders(ctx context.Context, from, to time.Time) ([]Reservation, error) {
	var (
		due      []Reservation
		startKey map[string]types.AttributeValue
	)

	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(s.tableName),
			FilterExpression: aws.String("#status = :confirmed AND reminded = :false AND startAt BETWEEN :from AND :to"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":confirmed": &types.AttributeValueMemberS{Value: string(StatusConfirmed)},
				":false":     &types.AttributeValueMemberBOOL{Value: false},
				":from":      &types.AttributeValueMemberS{Value: from.UTC().Format(time.RFC3339)},
				":to":        &types.AttributeValueMemberS{Value: to.UTC().Format(time.RFC3339)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("reservation: reminder scan failed: %w", err)
		}

		var page []Reservation
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("reservation: failed to decode scan page: %w", err)
		}
		due = append(due, page...)

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return due, nil
}
