package search

import (
	"log"
	"sync"
)

// Service is the facade that tries Meilisearch first and falls back to a
// literal scan.
type Service struct {
	meili    *Meili
	fallback Scanner

	// pending holds the newest unindexed content per sheet, in arrival order.
	mu      sync.Mutex
	pending map[string][]string
	order   []string
	wake    chan struct{}
	stop    chan struct{}
	stopped sync.WaitGroup
	once    sync.Once
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, fallback Scanner) *Service {
	s := &Service{
		meili:    meili,
		fallback: fallback,
		pending:  make(map[string][]string),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	if meili != nil {
		s.stopped.Add(1)
		go s.indexLoop()
	}
	return s
}

// Search answers from Meilisearch only when it returned a full page of
// literal matches. Fuzzy hits it had to drop, or a short page, mean it may
// have missed infix or case-exact matches, so the scan answers instead.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		page, err := s.meili.Search(q)
		switch {
		case err != nil:
			log.Printf("search: meilisearch error, falling back to scan: %v", err)
		case page.Dropped == 0 && len(page.Results) >= pageLimit(q.Limit):
			total := page.Estimated
			if seen := q.Offset + len(page.Results); total < seen {
				total = seen
			}
			return Response{Results: page.Results, Total: total, Query: q.Text, Source: "meilisearch"}
		case s.fallback == nil:
			return Response{Results: nonNil(page.Results), Total: len(page.Results), Query: q.Text, Source: "meilisearch"}
		}
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text, Source: "none"}
	}
	results, total, err := s.fallback.Scan(q)
	if err != nil {
		log.Printf("search: scan error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text, Source: "scan"}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Source: "scan"}
}

// IndexSheet queues a sheet's cells for Meilisearch and returns at once.
// A sheet saved again before the worker reaches it is indexed once, with
// its newest content.
func (s *Service) IndexSheet(sheetID string, content []string) {
	if s == nil || s.meili == nil {
		return
	}
	cells := make([]string, len(content))
	copy(cells, content)

	s.mu.Lock()
	if _, queued := s.pending[sheetID]; !queued {
		s.order = append(s.order, sheetID)
	}
	s.pending[sheetID] = cells
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) indexLoop() {
	defer s.stopped.Done()
	for {
		select {
		case <-s.wake:
			s.drain()
		case <-s.stop:
			s.drain()
			return
		}
	}
}

func (s *Service) drain() {
	for {
		s.mu.Lock()
		if len(s.order) == 0 {
			s.mu.Unlock()
			return
		}
		sheetID := s.order[0]
		s.order = s.order[1:]
		content := s.pending[sheetID]
		delete(s.pending, sheetID)
		s.mu.Unlock()

		if !s.meili.Healthy() {
			continue
		}
		if err := s.meili.IndexSheet(sheetID, content); err != nil {
			log.Printf("search: index sheet %s: %v", sheetID, err)
		}
	}
}

// Close flushes queued indexing and stops the Meilisearch client.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		close(s.stop)
		s.stopped.Wait()
		if s.meili != nil {
			s.meili.Close()
		}
	})
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
