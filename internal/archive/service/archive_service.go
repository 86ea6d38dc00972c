package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"github.com/Avi18971911/Tally/internal/archive/model"
	"github.com/Avi18971911/Tally/internal/db/elasticsearch/client"
	exportService "github.com/Avi18971911/Tally/internal/export/service"
	ingestModel "github.com/Avi18971911/Tally/internal/ingest/model"
	"go.uber.org/zap"
	"time"
)

const bulkTimeOut = 10 * time.Second

// ArchiveService indexes exported streaming batches and searches them afterwards.
type ArchiveService interface {
	exportService.BatchSink
	Search(ctx context.Context, sourceId string, phrase string, size int) ([]model.LogDocument, error)
	Count(ctx context.Context, sourceId string) (int64, error)
}

type ArchiveServiceImpl struct {
	ac        client.TallyClient
	indexName string
	now       func() time.Time
	logger    *zap.Logger
}

func NewArchiveService(ac client.TallyClient, indexName string, logger *zap.Logger) *ArchiveServiceImpl {
	return &ArchiveServiceImpl{
		ac:        ac,
		indexName: indexName,
		now:       time.Now,
		logger:    logger,
	}
}

func (as *ArchiveServiceImpl) ExportBatch(
	ctx context.Context,
	target exportService.ExportTarget,
	records []ingestModel.LogRecord,
) error {
	if len(records) == 0 {
		return nil
	}
	exportedAt := as.now().UTC()
	documents := make([]client.BulkDocument, len(records))
	for i, record := range records {
		document := toDocument(record, exportedAt)
		id := document.Id
		document.Id = ""
		documents[i] = client.BulkDocument{Id: id, Body: document}
	}

	bulkCtx, cancel := context.WithTimeout(ctx, bulkTimeOut)
	defer cancel()
	if err := as.ac.BulkIndex(bulkCtx, as.indexName, documents); err != nil {
		as.logger.Error(
			"Failed to index batch",
			zap.String("source_id", target.SourceId),
			zap.Int("batch_size", len(records)),
			zap.Error(err),
		)
		return fmt.Errorf("error bulk indexing batch for %s: %w", target.SourceId, err)
	}
	return nil
}

func (as *ArchiveServiceImpl) Search(
	ctx context.Context,
	sourceId string,
	phrase string,
	size int,
) ([]model.LogDocument, error) {
	hits, err := as.ac.Search(ctx, as.indexName, searchQueryBuilder(sourceId, phrase), size)
	if err != nil {
		return nil, fmt.Errorf("failed to search archived logs: %w", err)
	}
	return convertDocuments(hits)
}

func (as *ArchiveServiceImpl) Count(ctx context.Context, sourceId string) (int64, error) {
	count, err := as.ac.Count(ctx, as.indexName, countBySourceQueryBuilder(sourceId))
	if err != nil {
		return 0, fmt.Errorf("failed to count archived logs: %w", err)
	}
	return count, nil
}

func toDocument(record ingestModel.LogRecord, exportedAt time.Time) model.LogDocument {
	return model.LogDocument{
		Id:              generateDocumentId(record),
		SourceId:        record.SourceId,
		SequenceIndex:   record.SequenceIndex,
		Timestamp:       record.Timestamp.UTC(),
		ExportedAt:      exportedAt,
		Message:         record.Message,
		MatchedKeywords: append([]string{}, record.MatchedKeywords...),
		Highlighted:     record.Highlighted(),
	}
}

func generateDocumentId(record ingestModel.LogRecord) string {
	data := fmt.Sprintf("%s:%d:%s", record.SourceId, record.SequenceIndex, record.Timestamp.UTC().Format(time.RFC3339Nano))
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

func convertDocuments(hits []client.Hit) ([]model.LogDocument, error) {
	documents := make([]model.LogDocument, len(hits))
	for i, hit := range hits {
		if err := json.Unmarshal(hit.Source, &documents[i]); err != nil {
			return nil, fmt.Errorf("failed to decode archived document %s: %w", hit.Id, err)
		}
		documents[i].Id = hit.Id
	}
	return documents, nil
}
