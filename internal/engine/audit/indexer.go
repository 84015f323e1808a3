// Package audit records escalation events in Elasticsearch for later
// analysis. Indexing is best-effort and never blocks or fails message
// processing.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	"supportbot-engine/internal/common/logger"
)

const defaultIndex = "escalations"

// EscalationRecord is the document shape written per escalation.
type EscalationRecord struct {
	SessionKey   string    `json:"sessionKey"`
	Reason       string    `json:"reason"`
	Intent       string    `json:"intent"`
	Confidence   float64   `json:"confidence"`
	Sentiment    float64   `json:"sentiment"`
	Language     string    `json:"language"`
	MessageCount int       `json:"messageCount"`
	Timestamp    time.Time `json:"timestamp"`
}

type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	if index == "" {
		index = defaultIndex
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Indexer{client: client, index: index, logger: log}
}

// Index writes one escalation record. Errors are logged and swallowed.
func (i *Indexer) Index(ctx context.Context, rec EscalationRecord) {
	body, err := json.Marshal(rec)
	if err != nil {
		i.logger.Error("escalation record marshal failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(uuid.New().String()),
	)
	if err != nil {
		i.logger.Error("escalation index request failed", map[string]interface{}{
			"error":      err.Error(),
			"sessionKey": rec.SessionKey,
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		i.logger.Error("escalation index rejected", map[string]interface{}{
			"status":     res.Status(),
			"sessionKey": rec.SessionKey,
		})
		return
	}

	i.logger.Debug("escalation indexed", map[string]interface{}{
		"sessionKey": rec.SessionKey,
		"reason":     rec.Reason,
	})
}

// Search returns recent escalation records for a session, newest first.
// Used by operational tooling, not the message path.
func (i *Indexer) Search(ctx context.Context, sessionKey string, limit int) ([]EscalationRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"sessionKey": sessionKey,
			},
		},
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "desc"}},
		},
		"size": limit,
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.index),
		i.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("escalation search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("escalation search error: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source EscalationRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("escalation search decode failed: %w", err)
	}

	records := make([]EscalationRecord, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		records = append(records, hit.Source)
	}
	return records, nil
}
