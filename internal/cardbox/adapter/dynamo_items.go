package adapter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cardbox-io/cardbox/internal/cardbox/app"
	"github.com/cardbox-io/cardbox/internal/domain"
	"github.com/cardbox-io/cardbox/internal/dynamo"
)

type itemDynamoDB interface {
	GetItem(ctx context.Context, params *dynamo.GetItemInput, optFns ...func(*dynamo.Options)) (*dynamo.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamo.PutItemInput, optFns ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error)
	Query(ctx context.Context, params *dynamo.QueryInput, optFns ...func(*dynamo.Options)) (*dynamo.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamo.UpdateItemInput, optFns ...func(*dynamo.Options)) (*dynamo.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamo.DeleteItemInput, optFns ...func(*dynamo.Options)) (*dynamo.DeleteItemOutput, error)
}

var _ app.ItemStore = (*ItemStore)(nil)

// TableNames maps logical table names to the physical DynamoDB tables
// backing them.
type TableNames map[domain.Table]string

// ItemStore persists the user-owned tables (cards, folders, tags) in
// DynamoDB. Every table shares one key schema: user_id is the partition
// key and id the sort key, so a caller can only ever touch rows under
// its own partition.
type ItemStore struct {
	db     itemDynamoDB
	tables TableNames
}

// NewItemStore creates an ItemStore over the given physical tables.
func NewItemStore(db itemDynamoDB, tables TableNames) *ItemStore {
	return &ItemStore{db: db, tables: tables}
}

func (s *ItemStore) tableName(table domain.Table) (string, error) {
	name, ok := s.tables[table]
	if !ok {
		return "", fmt.Errorf("item store: no physical table for %q: %w", table, domain.ErrTableNotAllowed)
	}
	return name, nil
}

// List returns all rows in the user's partition of the table.
func (s *ItemStore) List(ctx context.Context, table domain.Table, userID string) ([]app.Item, error) {
	name, err := s.tableName(table)
	if err != nil {
		return nil, err
	}

	keyExpr := "#uid = :uid"

	out, err := s.db.Query(ctx, &dynamo.QueryInput{
		TableName:                &name,
		KeyConditionExpression:   &keyExpr,
		ExpressionAttributeNames: map[string]string{"#uid": "user_id"},
		ExpressionAttributeValues: map[string]dynamo.AttributeValue{
			":uid": &dynamo.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("item store: list %s: %w", table, err)
	}

	items := make([]app.Item, 0, len(out.Items))
	for _, av := range out.Items {
		var item app.Item
		if err := dynamo.UnmarshalMap(av, &item); err != nil {
			return nil, fmt.Errorf("item store: unmarshal %s item: %w", table, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Get returns one row from the user's partition, or domain.ErrNotFound.
// A row under a different user is indistinguishable from one that does
// not exist.
func (s *ItemStore) Get(ctx context.Context, table domain.Table, userID, id string) (app.Item, error) {
	name, err := s.tableName(table)
	if err != nil {
		return nil, err
	}

	out, err := s.db.GetItem(ctx, &dynamo.GetItemInput{
		TableName:      &name,
		Key:            itemKey(userID, id),
		ConsistentRead: dynamo.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("item store: get %s item: %w", table, err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("item store: %s item %s: %w", table, id, domain.ErrNotFound)
	}

	var item app.Item
	if err := dynamo.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("item store: unmarshal %s item: %w", table, err)
	}
	return item, nil
}

// Put writes a complete row. The app layer stamps user_id and id before
// calling, so the key attributes are always present.
func (s *ItemStore) Put(ctx context.Context, table domain.Table, item app.Item) error {
	name, err := s.tableName(table)
	if err != nil {
		return err
	}

	av, err := dynamo.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("item store: marshal %s item: %w", table, err)
	}

	_, err = s.db.PutItem(ctx, &dynamo.PutItemInput{
		TableName: &name,
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("item store: put %s item: %w", table, err)
	}
	return nil
}

// Update applies attrs to an existing row in the user's partition and
// returns the full updated row. The row must already exist: updating a
// missing (or foreign, which keys identically) row fails with
// domain.ErrNotFound.
func (s *ItemStore) Update(ctx context.Context, table domain.Table, userID, id string, attrs app.Item) (app.Item, error) {
	name, err := s.tableName(table)
	if err != nil {
		return nil, err
	}
	if len(attrs) == 0 {
		return s.Get(ctx, table, userID, id)
	}

	values, err := dynamo.MarshalMap(attrs)
	if err != nil {
		return nil, fmt.Errorf("item store: marshal %s attrs: %w", table, err)
	}

	// Deterministic expression order keeps requests reproducible in tests.
	fields := make([]string, 0, len(attrs))
	for field := range attrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	names := make(map[string]string, len(fields))
	exprValues := make(map[string]dynamo.AttributeValue, len(fields))
	assignments := make([]string, 0, len(fields))
	for i, field := range fields {
		nameRef := fmt.Sprintf("#f%d", i)
		valueRef := fmt.Sprintf(":v%d", i)
		names[nameRef] = field
		exprValues[valueRef] = values[field]
		assignments = append(assignments, nameRef+" = "+valueRef)
	}
	updateExpr := "SET " + strings.Join(assignments, ", ")
	condExpr := "attribute_exists(id)"

	out, err := s.db.UpdateItem(ctx, &dynamo.UpdateItemInput{
		TableName:                 &name,
		Key:                       itemKey(userID, id),
		UpdateExpression:          &updateExpr,
		ConditionExpression:       &condExpr,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: exprValues,
		ReturnValues:              dynamo.ReturnValueAllNew,
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return nil, fmt.Errorf("item store: update %s item: %w", table, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("item store: update %s item: %w", table, err)
	}

	var item app.Item
	if err := dynamo.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("item store: unmarshal %s item: %w", table, err)
	}
	return item, nil
}

// Delete removes a row from the user's partition. Deleting an absent
// row is a no-op.
func (s *ItemStore) Delete(ctx context.Context, table domain.Table, userID, id string) error {
	name, err := s.tableName(table)
	if err != nil {
		return err
	}

	_, err = s.db.DeleteItem(ctx, &dynamo.DeleteItemInput{
		TableName: &name,
		Key:       itemKey(userID, id),
	})
	if err != nil {
		return fmt.Errorf("item store: delete %s item: %w", table, err)
	}
	return nil
}

func itemKey(userID, id string) map[string]dynamo.AttributeValue {
	return map[string]dynamo.AttributeValue{
		"user_id": &dynamo.AttributeValueMemberS{Value: userID},
		"id":      &dynamo.AttributeValueMemberS{Value: id},
	}
}
