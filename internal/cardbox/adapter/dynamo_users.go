package adapter

import (
	"context"
	"fmt"

	"github.com/cardbox-io/cardbox/internal/cardbox/app"
	"github.com/cardbox-io/cardbox/internal/domain"
	"github.com/cardbox-io/cardbox/internal/dynamo"
)

// PhoneIndexName is the GSI on the users table that maps phone -> user.
const PhoneIndexName = "phone-index"

type userDynamoDB interface {
	GetItem(ctx context.Context, params *dynamo.GetItemInput, optFns ...func(*dynamo.Options)) (*dynamo.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamo.PutItemInput, optFns ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error)
	Query(ctx context.Context, params *dynamo.QueryInput, optFns ...func(*dynamo.Options)) (*dynamo.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamo.UpdateItemInput, optFns ...func(*dynamo.Options)) (*dynamo.UpdateItemOutput, error)
}

var _ app.UserStore = (*UserStore)(nil)

// userItem is the DynamoDB item shape for the users table, keyed by
// user_id. pin_hash is absent (not empty) when no PIN is configured.
type userItem struct {
	UserID    string `dynamodbav:"user_id"`
	Phone     string `dynamodbav:"phone"`
	FullName  string `dynamodbav:"full_name,omitempty"`
	Email     string `dynamodbav:"email,omitempty"`
	PinHash   string `dynamodbav:"pin_hash,omitempty"`
	CreatedAt string `dynamodbav:"created_at"`
}

// UserStore persists user records in DynamoDB.
type UserStore struct {
	db        userDynamoDB
	tableName string
}

// NewUserStore creates a UserStore backed by the given DynamoDB client.
func NewUserStore(db userDynamoDB, tableName string) *UserStore {
	return &UserStore{db: db, tableName: tableName}
}

// GetByID retrieves a user by primary key with a strongly consistent
// read. Returns domain.ErrNotFound when no such user exists.
func (s *UserStore) GetByID(ctx context.Context, userID string) (*app.UserRecord, error) {
	out, err := s.db.GetItem(ctx, &dynamo.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"user_id": &dynamo.AttributeValueMemberS{Value: userID},
		},
		ConsistentRead: dynamo.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("user store: get by id: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("user store: user %s: %w", userID, domain.ErrNotFound)
	}
	return unmarshalUser(out.Item)
}

// FindByPhone looks a user up through the phone GSI. The index is
// eventually consistent, which is acceptable: a user created moments ago
// by the login flow is found by primary key on subsequent requests.
func (s *UserStore) FindByPhone(ctx context.Context, phone string) (*app.UserRecord, error) {
	keyExpr := "#p = :phone"

	out, err := s.db.Query(ctx, &dynamo.QueryInput{
		TableName:                &s.tableName,
		IndexName:                dynamo.String(PhoneIndexName),
		KeyConditionExpression:   &keyExpr,
		ExpressionAttributeNames: map[string]string{"#p": "phone"},
		ExpressionAttributeValues: map[string]dynamo.AttributeValue{
			":phone": &dynamo.AttributeValueMemberS{Value: phone},
		},
		Limit: dynamo.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("user store: find by phone: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user store: phone not registered: %w", domain.ErrNotFound)
	}
	return unmarshalUser(out.Items[0])
}

// Create inserts a new user record. The user_id must not already exist.
func (s *UserStore) Create(ctx context.Context, record app.UserRecord) error {
	av, err := dynamo.MarshalMap(userItem{
		UserID:    record.UserID,
		Phone:     record.Phone,
		FullName:  record.FullName,
		Email:     record.Email,
		PinHash:   record.PinHash,
		CreatedAt: record.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("user store: marshal item: %w", err)
	}

	condExpr := "attribute_not_exists(user_id)"

	_, err = s.db.PutItem(ctx, &dynamo.PutItemInput{
		TableName:           &s.tableName,
		Item:                av,
		ConditionExpression: &condExpr,
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return fmt.Errorf("user store: create: %w", domain.ErrAlreadyExists)
		}
		return fmt.Errorf("user store: create: %w", err)
	}
	return nil
}

// UpdateProfile replaces the display name and email, returning the
// updated record. Fails with domain.ErrNotFound for unknown users.
func (s *UserStore) UpdateProfile(ctx context.Context, userID, fullName, email string) (*app.UserRecord, error) {
	updateExpr := "SET full_name = :fn, email = :em"
	condExpr := "attribute_exists(user_id)"

	out, err := s.db.UpdateItem(ctx, &dynamo.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"user_id": &dynamo.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression:    &updateExpr,
		ConditionExpression: &condExpr,
		ExpressionAttributeValues: map[string]dynamo.AttributeValue{
			":fn": &dynamo.AttributeValueMemberS{Value: fullName},
			":em": &dynamo.AttributeValueMemberS{Value: email},
		},
		ReturnValues: dynamo.ReturnValueAllNew,
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return nil, fmt.Errorf("user store: update profile: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("user store: update profile: %w", err)
	}
	return unmarshalUser(out.Attributes)
}

// SetPinHash overwrites the stored PIN digest.
func (s *UserStore) SetPinHash(ctx context.Context, userID, pinHash string) error {
	updateExpr := "SET pin_hash = :ph"
	condExpr := "attribute_exists(user_id)"

	_, err := s.db.UpdateItem(ctx, &dynamo.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"user_id": &dynamo.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression:    &updateExpr,
		ConditionExpression: &condExpr,
		ExpressionAttributeValues: map[string]dynamo.AttributeValue{
			":ph": &dynamo.AttributeValueMemberS{Value: pinHash},
		},
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return fmt.Errorf("user store: set pin: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("user store: set pin: %w", err)
	}
	return nil
}

// ClearPinHash removes the PIN digest attribute. Removing an attribute
// that is already absent succeeds.
func (s *UserStore) ClearPinHash(ctx context.Context, userID string) error {
	updateExpr := "REMOVE pin_hash"
	condExpr := "attribute_exists(user_id)"

	_, err := s.db.UpdateItem(ctx, &dynamo.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"user_id": &dynamo.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression:    &updateExpr,
		ConditionExpression: &condExpr,
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return fmt.Errorf("user store: clear pin: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("user store: clear pin: %w", err)
	}
	return nil
}

func unmarshalUser(av map[string]dynamo.AttributeValue) (*app.UserRecord, error) {
	var item userItem
	if err := dynamo.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("user store: unmarshal item: %w", err)
	}
	return &app.UserRecord{
		UserID:    item.UserID,
		Phone:     item.Phone,
		FullName:  item.FullName,
		Email:     item.Email,
		PinHash:   item.PinHash,
		CreatedAt: item.CreatedAt,
	}, nil
}
