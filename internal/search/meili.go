package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxCells = "sheet_cells"

// Meili indexes cells in Meilisearch.
type Meili struct {
	client    meili.ServiceManager
	healthy   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewMeili creates a Meilisearch client and configures the cell index.
// An unreachable server leaves the client unhealthy; the health loop
// picks it up once it recovers.
func NewMeili(url, apiKey string) *Meili {
	return newMeili(meili.New(url, meili.WithAPIKey(apiKey)), url)
}

func newMeili(client meili.ServiceManager, url string) *Meili {
	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxCells,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxCells, err)
	}

	index := m.client.Index(idxCells)
	filterable := []interface{}{"sheetId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxCells, err)
	}
	searchable := []string{"content"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxCells, err)
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
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Candidates is one page of index hits. Results keeps the hits that
// literally contain the query; Dropped counts the fuzzy ones left out.
type Candidates struct {
	Results   []Result
	Dropped   int
	Estimated int
}

func (m *Meili) Search(q Query) (Candidates, error) {
	var page Candidates
	if !m.healthy.Load() {
		return page, fmt.Errorf("meilisearch unhealthy")
	}

	sr := &meili.SearchRequest{
		IndexUID:              idxCells,
		Query:                 q.Text,
		Limit:                 int64(pageLimit(q.Limit)),
		Offset:                int64(q.Offset),
		AttributesToHighlight: []string{"content"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
	if q.SheetID != "" {
		sr.Filter = []string{fmt.Sprintf("sheetId = %q", q.SheetID)}
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{sr},
	})
	if err != nil {
		m.healthy.Store(false)
		return page, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	for _, res := range resp.Results {
		page.Estimated += int(res.EstimatedTotalHits)
		for _, hit := range res.Hits {
			r := hitToResult(hit)
			if !Matches(r.Content, q.Text) {
				page.Dropped++
				continue
			}
			page.Results = append(page.Results, r)
		}
	}
	return page, nil
}

func hitToResult(hit meili.Hit) Result {
	r := Result{
		SheetID: decodeString(hit, "sheetId"),
		Index:   decodeInt(hit, "index"),
		Content: decodeString(hit, "content"),
	}
	r.Snippet = decodeFormattedString(hit, "content")
	return r
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

func decodeInt(hit meili.Hit, key string) int {
	raw, ok := hit[key]
	if !ok {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return 0
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]any
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	value, _ := formatted[key].(string)
	return strings.TrimSpace(value)
}

// IndexSheet replaces every cell record of a sheet. Blank cells are indexed
// too so that cleared content overwrites its previous record.
func (m *Meili) IndexSheet(sheetID string, content []string) error {
	records := CellRecords(sheetID, content)
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxCells).AddDocuments(records, nil)
	return err
}

// CellRecords builds one record per cell.
func CellRecords(sheetID string, content []string) []CellRecord {
	records := make([]CellRecord, len(content))
	for i, cell := range content {
		records[i] = CellRecord{
			ID:      sheetID + "-" + strconv.Itoa(i),
			SheetID: sheetID,
			Index:   i,
			Content: cell,
		}
	}
	return records
}
