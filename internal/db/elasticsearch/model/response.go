package model

import "encoding/json"

type SearchResponse struct {
	Hits struct {
		Hits []SearchHit `json:"hits"`
	} `json:"hits"`
}

type SearchHit struct {
	Id     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type BulkResponse struct {
	Errors bool                  `json:"errors"`
	Items  []map[string]BulkItem `json:"items"`
}

type BulkItem struct {
	Id     string     `json:"_id"`
	Status int        `json:"status"`
	Error  *BulkError `json:"error,omitempty"`
}

type BulkError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
