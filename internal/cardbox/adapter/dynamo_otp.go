// Package adapter contains the infrastructure implementations of the app
// layer's store and notifier interfaces: DynamoDB-backed storage and the
// OTP delivery channels.
package adapter

import (
	"context"
	"fmt"

	"github.com/cardbox-io/cardbox/internal/cardbox/app"
	"github.com/cardbox-io/cardbox/internal/domain"
	"github.com/cardbox-io/cardbox/internal/dynamo"
)

// otpDynamoDB is a narrow, consumer-defined interface for the DynamoDB
// operations the OTP store needs. The real *dynamodb.Client satisfies it;
// test stubs implement it directly.
type otpDynamoDB interface {
	PutItem(ctx context.Context, params *dynamo.PutItemInput, optFns ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error)
	Query(ctx context.Context, params *dynamo.QueryInput, optFns ...func(*dynamo.Options)) (*dynamo.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamo.DeleteItemInput, optFns ...func(*dynamo.Options)) (*dynamo.DeleteItemOutput, error)
}

var _ app.OTPStore = (*OTPStore)(nil)

// otpItem is the DynamoDB item shape for the otp_codes table. The table
// is keyed by phone with created_at as the sort key, so "latest code for
// a phone" is a single descending query.
type otpItem struct {
	Phone     string `dynamodbav:"phone"`
	CreatedAt string `dynamodbav:"created_at"`
	OTPID     string `dynamodbav:"otp_id"`
	Code      string `dynamodbav:"code"`
}

// OTPStore persists one-time codes in DynamoDB. Rows carry no TTL:
// expiry is enforced at read time, and stale rows are simply shadowed by
// newer ones.
type OTPStore struct {
	db        otpDynamoDB
	tableName string
}

// NewOTPStore creates an OTPStore backed by the given DynamoDB client.
func NewOTPStore(db otpDynamoDB, tableName string) *OTPStore {
	return &OTPStore{db: db, tableName: tableName}
}

// Insert appends a new OTP row. Earlier rows for the same phone are left
// untouched; issuance never reads.
func (s *OTPStore) Insert(ctx context.Context, record app.OTPRecord) error {
	av, err := dynamo.MarshalMap(otpItem{
		Phone:     record.Phone,
		CreatedAt: record.CreatedAt,
		OTPID:     record.OTPID,
		Code:      record.Code,
	})
	if err != nil {
		return fmt.Errorf("otp store: marshal item: %w", err)
	}

	_, err = s.db.PutItem(ctx, &dynamo.PutItemInput{
		TableName: &s.tableName,
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("otp store: insert: %w", err)
	}
	return nil
}

// Latest returns the most recent row for the phone, reading consistently
// so a code issued an instant ago is already visible. Returns
// domain.ErrNotFound when the phone has no rows at all.
func (s *OTPStore) Latest(ctx context.Context, phone string) (*app.OTPRecord, error) {
	keyExpr := "#p = :phone"

	out, err := s.db.Query(ctx, &dynamo.QueryInput{
		TableName:                &s.tableName,
		KeyConditionExpression:   &keyExpr,
		ExpressionAttributeNames: map[string]string{"#p": "phone"},
		ExpressionAttributeValues: map[string]dynamo.AttributeValue{
			":phone": &dynamo.AttributeValueMemberS{Value: phone},
		},
		ScanIndexForward: dynamo.Bool(false),
		Limit:            dynamo.Int32(1),
		ConsistentRead:   dynamo.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("otp store: query latest: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("otp store: no code for phone: %w", domain.ErrNotFound)
	}

	var item otpItem
	if err := dynamo.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, fmt.Errorf("otp store: unmarshal item: %w", err)
	}

	return &app.OTPRecord{
		OTPID:     item.OTPID,
		Phone:     item.Phone,
		Code:      item.Code,
		CreatedAt: item.CreatedAt,
	}, nil
}

// Delete removes the given row. DynamoDB deletes are idempotent, so a
// row already removed by a concurrent verification is not an error.
func (s *OTPStore) Delete(ctx context.Context, record app.OTPRecord) error {
	_, err := s.db.DeleteItem(ctx, &dynamo.DeleteItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"phone":      &dynamo.AttributeValueMemberS{Value: record.Phone},
			"created_at": &dynamo.AttributeValueMemberS{Value: record.CreatedAt},
		},
	})
	if err != nil {
		return fmt.Errorf("otp store: delete: %w", err)
	}
	return nil
}
