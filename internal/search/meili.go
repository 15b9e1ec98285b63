package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	idxTasks   = "hearth_tasks"
	idxHealth  = "hearth_health"
	idxNotes   = "hearth_notes"
	idxFinance = "hearth_finance"
)

var indexByType = map[string]string{
	"TODO":    idxTasks,
	"HEALTH":  idxHealth,
	"NOTE":    idxNotes,
	"FINANCE": idxFinance,
}

// Meili implements Searcher via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the record indexes.
// The caller should proceed without Meilisearch if the initial health check
// fails; the background loop re-enables it when it comes back.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	for _, uid := range []string{idxTasks, idxHealth, idxNotes, idxFinance} {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        uid,
			PrimaryKey: "id",
		}); err != nil {
			log.Printf("search: create index %s (may already exist): %v", uid, err)
		}

		index := m.client.Index(uid)
		filterable := []interface{}{"personId", "type"}
		if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
			log.Printf("search: update filterable attrs for %s: %v", uid, err)
		}
		searchable := []string{"title", "body"}
		if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
			log.Printf("search: update searchable attrs for %s: %v", uid, err)
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func personFilter(personIDs []string) string {
	quoted := make([]string, 0, len(personIDs))
	for _, id := range personIDs {
		quoted = append(quoted, strconv.Quote(id))
	}
	return "personId IN [" + strings.Join(quoted, ", ") + "]"
}

// Search queries all four record indexes (or a filtered subset) and merges
// the results. Every sub-query carries the personId scope filter.
func (m *Meili) Search(_ context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}
	if len(q.PersonIDs) == 0 {
		return nil, 0, nil
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	for recordType, uid := range indexByType {
		if q.FilterType != "" && q.FilterType != recordType {
			continue
		}
		queries = append(queries, &meili.SearchRequest{
			IndexUID:              uid,
			Query:                 q.Text,
			Limit:                 limit,
			Offset:                int64(q.Offset),
			Filter:                []string{personFilter(q.PersonIDs)},
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
		})
	}
	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit))
		}
	}
	return results, total, nil
}

func hitToResult(hit meili.Hit) Result {
	return Result{
		Type:     decodeString(hit, "type"),
		ID:       decodeString(hit, "id"),
		PersonID: decodeString(hit, "personId"),
		Title:    firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title")),
		Snippet:  firstNonBlank(decodeFormattedString(hit, "body"), decodeString(hit, "body")),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexDocument adds or updates one record in its type's index.
func (m *Meili) IndexDocument(doc Document) error {
	uid, ok := indexByType[doc.Type]
	if !ok {
		return fmt.Errorf("unknown record type %q", doc.Type)
	}
	_, err := m.client.Index(uid).AddDocuments([]Document{doc}, nil)
	return err
}

// DeleteDocument removes a record from its type's index.
func (m *Meili) DeleteDocument(recordType, id string) error {
	uid, ok := indexByType[recordType]
	if !ok {
		return fmt.Errorf("unknown record type %q", recordType)
	}
	_, err := m.client.Index(uid).DeleteDocument(id, nil)
	return err
}

// IndexDocuments bulk-indexes records, grouped per index.
func (m *Meili) IndexDocuments(docs []Document) error {
	byIndex := map[string][]Document{}
	for _, doc := range docs {
		uid, ok := indexByType[doc.Type]
		if !ok {
			continue
		}
		byIndex[uid] = append(byIndex[uid], doc)
	}
	for uid, batch := range byIndex {
		if _, err := m.client.Index(uid).AddDocuments(batch, nil); err != nil {
			return err
		}
	}
	return nil
}
