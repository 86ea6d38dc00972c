package service

import (
	"bufio"
	"context"
	"encoding/json"
	"github.com/Avi18971911/Tally/internal/db/elasticsearch/bootstrapper"
	"github.com/Avi18971911/Tally/internal/db/elasticsearch/client"
	exportService "github.com/Avi18971911/Tally/internal/export/service"
	ingestModel "github.com/Avi18971911/Tally/internal/ingest/model"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeElasticsearch struct {
	mu         sync.Mutex
	bulkLines  []map[string]interface{}
	lastQuery  map[string]interface{}
	bulkErrors bool
}

func (f *fakeElasticsearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			var line map[string]interface{}
			if err := json.Unmarshal(scanner.Bytes(), &line); err == nil {
				f.bulkLines = append(f.bulkLines, line)
			}
		}
		if f.bulkErrors {
			io.WriteString(w, `{"took":1,"errors":true,"items":[{"index":{"_id":"a","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad"}}}]}`)
			return
		}
		io.WriteString(w, `{"took":1,"errors":false,"items":[]}`)
	case strings.HasSuffix(r.URL.Path, "/_search"):
		f.decodeQuery(r)
		io.WriteString(w, `{"took":1,"timed_out":false,"hits":{"total":{"value":1,"relation":"eq"},"hits":[`+
			`{"_index":"tally_log_index","_id":"abc","_source":{"source_id":"dev","sequence_index":4,`+
			`"timestamp":"2024-05-01T09:30:00Z","message":"ERROR x","matched_keywords":["ERROR"],"highlighted":true}}]}}`)
	case strings.HasSuffix(r.URL.Path, "/_count"):
		f.decodeQuery(r)
		io.WriteString(w, `{"count":7}`)
	default:
		io.WriteString(w, `{"version":{"number":"8.15.0"},"tagline":"You Know, for Search"}`)
	}
}

func (f *fakeElasticsearch) decodeQuery(r *http.Request) {
	var query map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&query); err == nil {
		f.lastQuery = query
	}
}

func newTestArchive(t *testing.T) (*ArchiveServiceImpl, *fakeElasticsearch) {
	t.Helper()
	fake := &fakeElasticsearch{}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	ac := client.NewTallyClientImpl(es, client.Async)
	archive := NewArchiveService(ac, bootstrapper.LogIndexName, zap.NewNop())
	archive.now = func() time.Time { return time.Date(2024, 5, 1, 9, 31, 0, 0, time.UTC) }
	return archive, fake
}

func TestArchiveService_ExportBatch(t *testing.T) {
	records := []ingestModel.LogRecord{
		{SequenceIndex: 0, SourceId: "dev", Timestamp: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC), Message: "boot ok"},
		{SequenceIndex: 1, SourceId: "dev", Timestamp: time.Date(2024, 5, 1, 9, 30, 1, 0, time.UTC), Message: "ERROR x", MatchedKeywords: []string{"ERROR"}},
	}
	target := exportService.ExportTarget{SourceId: "dev"}

	t.Run("should send one action and one document per record", func(t *testing.T) {
		archive, fake := newTestArchive(t)

		require.NoError(t, archive.ExportBatch(context.Background(), target, records))

		require.Len(t, fake.bulkLines, 4)
		action := fake.bulkLines[0]["index"].(map[string]interface{})
		assert.Equal(t, generateDocumentId(records[0]), action["_id"])
		assert.Equal(t, "boot ok", fake.bulkLines[1]["message"])
		assert.NotContains(t, fake.bulkLines[1], "_id")
		assert.Equal(t, true, fake.bulkLines[3]["highlighted"])
	})

	t.Run("should surface item failures reported in a successful response", func(t *testing.T) {
		archive, fake := newTestArchive(t)
		fake.bulkErrors = true

		err := archive.ExportBatch(context.Background(), target, records)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "mapper_parsing_exception")
	})

	t.Run("should skip empty batches", func(t *testing.T) {
		archive, fake := newTestArchive(t)

		require.NoError(t, archive.ExportBatch(context.Background(), target, nil))
		assert.Empty(t, fake.bulkLines)
	})
}

func TestArchiveService_Queries(t *testing.T) {
	t.Run("should decode search hits into documents", func(t *testing.T) {
		archive, fake := newTestArchive(t)

		documents, err := archive.Search(context.Background(), "dev", "ERROR", 5)

		require.NoError(t, err)
		require.Len(t, documents, 1)
		assert.Equal(t, "abc", documents[0].Id)
		assert.Equal(t, "ERROR x", documents[0].Message)
		assert.Equal(t, int64(4), documents[0].SequenceIndex)
		assert.True(t, documents[0].Highlighted)
		assert.Contains(t, fake.lastQuery, "query")
	})

	t.Run("should count documents for a source", func(t *testing.T) {
		archive, _ := newTestArchive(t)

		count, err := archive.Count(context.Background(), "dev")

		require.NoError(t, err)
		assert.Equal(t, int64(7), count)
	})
}

func TestGenerateDocumentId(t *testing.T) {
	t.Run("should be stable for the same record and differ across sources", func(t *testing.T) {
		record := ingestModel.LogRecord{SourceId: "a", SequenceIndex: 3, Timestamp: time.Unix(10, 0)}
		other := record
		other.SourceId = "b"

		assert.Equal(t, generateDocumentId(record), generateDocumentId(record))
		assert.NotEqual(t, generateDocumentId(record), generateDocumentId(other))
	})
}
