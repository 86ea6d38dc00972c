package client

import (
	"context"
	"encoding/json"
	"github.com/elastic/go-elasticsearch/v8"
)

const DefaultSearchSize = 10

type RefreshRate string

const (
	// Wait blocks the request until its writes are visible to search.
	Wait RefreshRate = "wait_for"
	// Immediate refreshes the touched shards right after the write.
	Immediate RefreshRate = "true"
	// Async leaves visibility to the periodic index refresh.
	Async RefreshRate = "false"
)

// BulkDocument is one document of a bulk request. An empty Id lets Elasticsearch pick one.
type BulkDocument struct {
	Id   string
	Body interface{}
}

// Hit is a search result with its source left undecoded for the caller.
type Hit struct {
	Id     string
	Source json.RawMessage
}

type TallyClient interface {
	// BulkIndex writes documents into index with a single _bulk request and fails
	// when any item is rejected.
	BulkIndex(ctx context.Context, index string, documents []BulkDocument) error
	// Search runs query against index. size <= 0 means DefaultSearchSize.
	Search(ctx context.Context, index string, query interface{}, size int) ([]Hit, error)
	Count(ctx context.Context, index string, query interface{}) (int64, error)
}

type TallyClientImpl struct {
	es          *elasticsearch.Client
	refreshRate string
}

func NewTallyClientImpl(es *elasticsearch.Client, refreshRate RefreshRate) *TallyClientImpl {
	return &TallyClientImpl{es: es, refreshRate: string(refreshRate)}
}
