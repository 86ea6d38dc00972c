package bootstrapper

const LogIndexName = "tally_log_index"

var logIndex = map[string]interface{}{
	"settings": map[string]interface{}{
		"number_of_shards":   1,
		"number_of_replicas": 0,
		"analysis": map[string]interface{}{
			"analyzer": map[string]interface{}{
				"message_analyzer": map[string]interface{}{
					"type":      "custom",
					"tokenizer": "standard",
					"filter":    []string{"lowercase"},
				},
			},
		},
	},
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"source_id": map[string]interface{}{
				"type": "keyword",
			},
			"sequence_index": map[string]interface{}{
				"type": "long",
			},
			"timestamp": map[string]interface{}{
				"type": "date",
			},
			"exported_at": map[string]interface{}{
				"type": "date",
			},
			"message": map[string]interface{}{
				"type":     "text",
				"analyzer": "message_analyzer",
				"fields": map[string]interface{}{
					"raw": map[string]interface{}{
						"type":         "keyword",
						"ignore_above": 8191,
					},
				},
			},
			"matched_keywords": map[string]interface{}{
				"type": "keyword",
			},
			"highlighted": map[string]interface{}{
				"type": "boolean",
			},
		},
	},
}
