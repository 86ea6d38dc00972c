//go:build integration

package elasticsearch

import (
	"context"
	"fmt"
	archiveService "github.com/Avi18971911/Tally/internal/archive/service"
	"github.com/Avi18971911/Tally/internal/db/elasticsearch/bootstrapper"
	"github.com/Avi18971911/Tally/internal/db/elasticsearch/client"
	exportService "github.com/Avi18971911/Tally/internal/export/service"
	"github.com/Avi18971911/Tally/internal/ingest/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func makeRecords(sourceId string, start time.Time, messages ...string) []model.LogRecord {
	records := make([]model.LogRecord, len(messages))
	for i, message := range messages {
		records[i] = model.LogRecord{
			SequenceIndex: int64(i),
			SourceId:      sourceId,
			Timestamp:     start.Add(time.Duration(i) * time.Millisecond),
			Message:       message,
		}
	}
	return records
}

func TestArchiveService(t *testing.T) {
	if es == nil {
		t.Fatal("es is uninitialized or otherwise nil")
	}
	ac := client.NewTallyClientImpl(es, client.Wait)
	archive := archiveService.NewArchiveService(ac, bootstrapper.LogIndexName, logger)
	ctx := context.Background()

	t.Run("should index exported batches and count them per source", func(t *testing.T) {
		require.NoError(t, deleteAllDocuments(es, bootstrapper.LogIndexName))
		start := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
		messages := make([]string, 60)
		for i := range messages {
			messages[i] = fmt.Sprintf("line %d", i)
		}

		err := archive.ExportBatch(ctx, exportService.ExportTarget{SourceId: "dev-1"}, makeRecords("dev-1", start, messages...))
		require.NoError(t, err)
		err = archive.ExportBatch(ctx, exportService.ExportTarget{SourceId: "dev-2"}, makeRecords("dev-2", start, "other"))
		require.NoError(t, err)

		count, err := archive.Count(ctx, "dev-1")
		require.NoError(t, err)
		assert.Equal(t, int64(60), count)
	})

	t.Run("should not duplicate a batch that is exported twice", func(t *testing.T) {
		require.NoError(t, deleteAllDocuments(es, bootstrapper.LogIndexName))
		records := makeRecords("dev-1", time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC), "a", "b")

		require.NoError(t, archive.ExportBatch(ctx, exportService.ExportTarget{SourceId: "dev-1"}, records))
		require.NoError(t, archive.ExportBatch(ctx, exportService.ExportTarget{SourceId: "dev-1"}, records))

		count, err := archive.Count(ctx, "dev-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("should find archived lines by phrase", func(t *testing.T) {
		require.NoError(t, deleteAllDocuments(es, bootstrapper.LogIndexName))
		records := makeRecords("dev-1", time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC), "boot ok", "ERROR disk failure")
		records[1] = records[1].WithMatches([]string{"ERROR", "FAIL"})
		require.NoError(t, archive.ExportBatch(ctx, exportService.ExportTarget{SourceId: "dev-1"}, records))

		documents, err := archive.Search(ctx, "dev-1", "disk failure", 10)

		require.NoError(t, err)
		require.Len(t, documents, 1)
		assert.Equal(t, "ERROR disk failure", documents[0].Message)
		assert.Equal(t, []string{"ERROR", "FAIL"}, documents[0].MatchedKeywords)
		assert.True(t, documents[0].Highlighted)
	})
}
