package client

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/Avi18971911/Tally/internal/db/elasticsearch/model"
	"github.com/elastic/go-elasticsearch/v8/esutil"
)

func (a *TallyClientImpl) Search(ctx context.Context, index string, query interface{}, size int) ([]Hit, error) {
	res, err := a.es.Search(
		a.es.Search.WithContext(ctx),
		a.es.Search.WithIndex(index),
		a.es.Search.WithBody(esutil.NewJSONReader(query)),
		a.es.Search.WithSize(searchSize(size)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search on %s failed: %s", index, res.String())
	}

	var searchResponse model.SearchResponse
	if err := json.NewDecoder(res.Body).Decode(&searchResponse); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	hits := make([]Hit, len(searchResponse.Hits.Hits))
	for i, hit := range searchResponse.Hits.Hits {
		hits[i] = Hit{Id: hit.Id, Source: hit.Source}
	}
	return hits, nil
}

func (a *TallyClientImpl) Count(ctx context.Context, index string, query interface{}) (int64, error) {
	res, err := a.es.Count(
		a.es.Count.WithContext(ctx),
		a.es.Count.WithIndex(index),
		a.es.Count.WithBody(esutil.NewJSONReader(query)),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("count on %s failed: %s", index, res.String())
	}

	var countResponse model.CountResponse
	if err := json.NewDecoder(res.Body).Decode(&countResponse); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return countResponse.Count, nil
}
