package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type indexAction struct {
	Index struct {
		Id string `json:"_id,omitempty"`
	} `json:"index"`
}

// encodeBulkBody renders the NDJSON body of a _bulk request: an index action line
// followed by the document line, for every document.
func encodeBulkBody(documents []BulkDocument) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for i, document := range documents {
		var action indexAction
		action.Index.Id = document.Id
		if err := encoder.Encode(action); err != nil {
			return nil, fmt.Errorf("error encoding bulk action %d: %w", i, err)
		}
		if err := encoder.Encode(document.Body); err != nil {
			return nil, fmt.Errorf("error encoding bulk document %d: %w", i, err)
		}
	}
	return &buf, nil
}

func searchSize(size int) int {
	if size <= 0 {
		return DefaultSearchSize
	}
	return size
}
