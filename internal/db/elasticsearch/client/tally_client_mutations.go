package client

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/Avi18971911/Tally/internal/db/elasticsearch/model"
)

func (a *TallyClientImpl) BulkIndex(ctx context.Context, index string, documents []BulkDocument) error {
	if len(documents) == 0 {
		return nil
	}
	body, err := encodeBulkBody(documents)
	if err != nil {
		return err
	}

	res, err := a.es.Bulk(
		body,
		a.es.Bulk.WithIndex(index),
		a.es.Bulk.WithContext(ctx),
		a.es.Bulk.WithRefresh(a.refreshRate),
	)
	if err != nil {
		return fmt.Errorf("error bulk indexing: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk index error: %s", res.String())
	}

	var bulkResponse model.BulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResponse); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if bulkResponse.Errors {
		return firstBulkFailure(bulkResponse)
	}
	return nil
}

// A 200 bulk response can still reject individual items.
func firstBulkFailure(response model.BulkResponse) error {
	failed := 0
	var first *model.BulkError
	for _, item := range response.Items {
		for _, result := range item {
			if result.Error == nil {
				continue
			}
			failed++
			if first == nil {
				first = result.Error
			}
		}
	}
	if first == nil {
		return fmt.Errorf("bulk index reported errors without item details")
	}
	return fmt.Errorf("bulk index failed for %d items, first: %s: %s", failed, first.Type, first.Reason)
}
