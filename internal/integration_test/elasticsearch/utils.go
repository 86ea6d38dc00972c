//go:build integration

package elasticsearch

import (
	"context"
	"fmt"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"time"
)

var matchAll = map[string]interface{}{
	"query": map[string]interface{}{
		"match_all": map[string]interface{}{},
	},
}

// deleteAllDocuments empties index between subtests.
func deleteAllDocuments(es *elasticsearch.Client, index string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := es.DeleteByQuery(
		[]string{index},
		esutil.NewJSONReader(matchAll),
		es.DeleteByQuery.WithContext(ctx),
		es.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("failed to delete documents from %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("delete by query on %s failed: %s", index, res.String())
	}
	return nil
}
