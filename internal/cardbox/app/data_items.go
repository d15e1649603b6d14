package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/cardbox-io/cardbox/internal/domain"
)

// ListItems returns every row the session's user owns in the given table.
// sortBy is an optional field name, prefixed with "-" for descending
// order; without it rows come back in storage order. Rows belonging to
// other users are invisible: the store is keyed by user, so they are
// never read in the first place.
func (s *DataService) ListItems(ctx context.Context, sessionToken, table, sortBy string) ([]Item, error) {
	ctx, span := tracer.Start(ctx, "DataService.ListItems")
	defer span.End()

	userID, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	tbl, err := allowedTable(table)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("table", string(tbl)))

	items, err := s.itemStore.List(ctx, tbl, userID)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", tbl, err)
	}

	sortItems(items, sortBy)

	dataOpsTotal.Add(ctx, 1)
	return items, nil
}

// GetItem returns a single owned row, or domain.ErrNotFound when the id
// does not exist under this user. A row owned by someone else reports the
// same way; existence is never disclosed across users.
func (s *DataService) GetItem(ctx context.Context, sessionToken, table, id string) (Item, error) {
	ctx, span := tracer.Start(ctx, "DataService.GetItem")
	defer span.End()

	userID, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	tbl, err := allowedTable(table)
	if err != nil {
		return nil, err
	}

	item, err := s.itemStore.Get(ctx, tbl, userID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s item: %w", tbl, err)
	}

	dataOpsTotal.Add(ctx, 1)
	return item, nil
}

// CreateItem inserts a new row owned by the session's user. The id,
// owner, and timestamps are stamped server-side; any client-supplied
// values for those fields are discarded.
func (s *DataService) CreateItem(ctx context.Context, sessionToken, table string, attrs Item) (Item, error) {
	ctx, span := tracer.Start(ctx, "DataService.CreateItem")
	defer span.End()

	userID, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	tbl, err := allowedTable(table)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC().Format(time.RFC3339)
	item := make(Item, len(attrs)+4)
	for k, v := range attrs {
		item[k] = v
	}
	item["id"] = domain.GenerateItemID().String()
	item["user_id"] = userID
	item["created_date"] = now
	item["updated_date"] = now

	if err := s.itemStore.Put(ctx, tbl, item); err != nil {
		return nil, fmt.Errorf("creating %s item: %w", tbl, err)
	}

	dataOpsTotal.Add(ctx, 1)
	return item, nil
}

// UpdateItem applies attrs to an owned row and returns the updated row.
// The id, owner, and creation timestamp are immutable; updated_date is
// refreshed server-side. Updating a missing or foreign row fails with
// domain.ErrForbidden.
func (s *DataService) UpdateItem(ctx context.Context, sessionToken, table, id string, attrs Item) (Item, error) {
	ctx, span := tracer.Start(ctx, "DataService.UpdateItem")
	defer span.End()

	userID, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	tbl, err := allowedTable(table)
	if err != nil {
		return nil, err
	}

	patch := make(Item, len(attrs)+1)
	for k, v := range attrs {
		switch k {
		case "id", "user_id", "created_date":
			continue
		}
		patch[k] = v
	}
	patch["updated_date"] = s.clock.Now().UTC().Format(time.RFC3339)

	item, err := s.itemStore.Update(ctx, tbl, userID, id, patch)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) {
			return nil, domain.ErrForbidden
		}
		return nil, fmt.Errorf("updating %s item: %w", tbl, err)
	}

	dataOpsTotal.Add(ctx, 1)
	return item, nil
}

// DeleteItem removes an owned row. Deleting an id that does not exist
// under this user succeeds quietly; a foreign row is untouched because
// the delete is keyed by owner.
func (s *DataService) DeleteItem(ctx context.Context, sessionToken, table, id string) error {
	ctx, span := tracer.Start(ctx, "DataService.DeleteItem")
	defer span.End()

	userID, err := s.authenticate(ctx, sessionToken)
	if err != nil {
		return err
	}
	tbl, err := allowedTable(table)
	if err != nil {
		return err
	}

	if err := s.itemStore.Delete(ctx, tbl, userID, id); err != nil {
		return fmt.Errorf("deleting %s item: %w", tbl, err)
	}

	dataOpsTotal.Add(ctx, 1)
	return nil
}

func allowedTable(name string) (domain.Table, error) {
	tbl := domain.Table(name)
	if !domain.IsAllowedTable(tbl) {
		return "", domain.ErrTableNotAllowed
	}
	return tbl, nil
}

// sortItems orders items by the sortBy field, descending when prefixed
// with "-" and ascending otherwise. An empty sortBy leaves storage order
// untouched. Rows missing the field (or holding an uncomparable type)
// group together at one end rather than breaking the listing.
func sortItems(items []Item, sortBy string) {
	if sortBy == "" {
		return
	}
	field := sortBy
	desc := false
	if strings.HasPrefix(sortBy, "-") {
		field = sortBy[1:]
		desc = true
	}

	sort.SliceStable(items, func(i, j int) bool {
		c := compareValues(items[i][field], items[j][field])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareValues(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
		return 0
	}

	// Present values sort ahead of missing ones; otherwise keep order.
	switch {
	case a != nil && b == nil:
		return 1
	case b != nil && a == nil:
		return -1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
