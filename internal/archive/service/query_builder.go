package service

func sourceFilter(sourceId string) map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{
			"source_id": sourceId,
		},
	}
}

func countBySourceQueryBuilder(sourceId string) map[string]interface{} {
	return map[string]interface{}{
		"query": sourceFilter(sourceId),
	}
}

func searchQueryBuilder(sourceId string, phrase string) map[string]interface{} {
	filters := []map[string]interface{}{}
	if sourceId != "" {
		filters = append(filters, sourceFilter(sourceId))
	}
	must := []map[string]interface{}{}
	if phrase != "" {
		must = append(must, map[string]interface{}{
			"match_phrase": map[string]interface{}{
				"message": phrase,
			},
		})
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filters,
				"must":   must,
			},
		},
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "desc"}},
			{"sequence_index": map[string]interface{}{"order": "desc"}},
		},
	}
}
