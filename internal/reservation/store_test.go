package reservation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/clayhaus/bookingbot/pkg/logging"
)

type mockDynamo struct {
	putInput     *dynamodb.PutItemInput
	updateInputs []*dynamodb.UpdateItemInput
	updateErr    error
	scanOutput   *dynamodb.ScanOutput
}

func (m *mockDynamo) PutItem(_ context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.putInput = input
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamo) UpdateItem(_ context.Context, input *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.updateInputs = append(m.updateInputs, input)
	return &dynamodb.UpdateItemOutput{}, m.updateErr
}

func (m *mockDynamo) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if m.scanOutput == nil {
		return &dynamodb.ScanOutput{}, nil
	}
	return m.scanOutput, nil
}

func TestDynamoStore_CreateGuardsAgainstOverwrite(t *testing.T) {
	mock := &mockDynamo{}
	store := NewDynamoStore(mock, "reservations", logging.Default())

	r := &Reservation{
		ReservationID: "res-1",
		CustomerID:    "cust-1",
		StartAt:       time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		Status:        StatusPending,
	}
	if err := store.Create(context.Background(), r); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if expr := mock.putInput.ConditionExpression; expr == nil || *expr != "attribute_not_exists(reservationId)" {
		t.Fatalf("expected overwrite guard, got %v", expr)
	}
	var stored Reservation
	if err := attributevalue.UnmarshalMap(mock.putInput.Item, &stored); err != nil {
		t.Fatalf("unmarshal stored record: %v", err)
	}
	if stored.CreatedAt == "" || stored.UpdatedAt == "" {
		t.Fatal("expected timestamps to be populated")
	}
}

func TestDynamoStore_MarkDecidedRequiresPending(t *testing.T) {
	mock := &mockDynamo{}
	store := NewDynamoStore(mock, "reservations", logging.Default())

	applied, err := store.MarkDecided(context.Background(), "res-1", StatusConfirmed)
	if err != nil {
		t.Fatalf("MarkDecided returned error: %v", err)
	}
	if !applied {
		t.Fatal("expected update to apply")
	}

	update := mock.updateInputs[0]
	if !strings.Contains(*update.ConditionExpression, ":pending") {
		t.Fatalf("decision must be guarded on pending status, got %s", *update.ConditionExpression)
	}
}

func TestDynamoStore_MarkDecidedConditionFailureIsNoOp(t *testing.T) {
	mock := &mockDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	store := NewDynamoStore(mock, "reservations", logging.Default())

	applied, err := store.MarkDecided(context.Background(), "res-1", StatusRejected)
	if err != nil {
		t.Fatalf("condition failure must not surface as error, got %v", err)
	}
	if applied {
		t.Fatal("expected no-op when status was not pending")
	}
}

func TestDynamoStore_MarkDecidedRejectsBogusStatus(t *testing.T) {
	store := NewDynamoStore(&mockDynamo{}, "reservations", logging.Default())

	if _, err := store.MarkDecided(context.Background(), "res-1", StatusPending); err == nil {
		t.Fatal("pending is not a decision")
	}
}

func TestDynamoStore_MarkRemindedConditionFailureIsNoOp(t *testing.T) {
	mock := &mockDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	store := NewDynamoStore(mock, "reservations", logging.Default())

	applied, err := store.MarkReminded(context.Background(), "res-1")
	if err != nil {
		t.Fatalf("condition failure must not surface as error, got %v", err)
	}
	if applied {
		t.Fatal("expected no-op when already reminded")
	}
}
