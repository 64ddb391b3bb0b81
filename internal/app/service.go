package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"

	"spreadsheet/api/internal/backend"
	"spreadsheet/api/internal/config"
	"spreadsheet/api/internal/export"
	"spreadsheet/api/internal/persist"
	"spreadsheet/api/internal/rbac"
	"spreadsheet/api/internal/search"
	"spreadsheet/api/internal/sheet"
	"spreadsheet/api/internal/util"
)

// DefaultSheetID addresses the sheet stored under the bare storage key.
const DefaultSheetID = "default"

var sheetIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// FormatInput is the body of a format change. Absent fields are left alone.
type FormatInput struct {
	Alignment       *string `json:"alignment"`
	FontSize        *string `json:"fontSize"`
	TextColor       *string `json:"textColor"`
	BackgroundColor *string `json:"backgroundColor"`
}

func (in FormatInput) patch() (sheet.FormatPatch, error) {
	var patch sheet.FormatPatch
	if in.Alignment != nil {
		alignment, err := sheet.ParseAlignment(*in.Alignment)
		if err != nil {
			return patch, err
		}
		patch.Alignment = &alignment
	}
	if in.FontSize != nil {
		size, err := sheet.ParseFontSize(*in.FontSize)
		if err != nil {
			return patch, err
		}
		patch.FontSize = &size
	}
	if in.TextColor != nil {
		color, err := sheet.ParseColor(*in.TextColor)
		if err != nil {
			return patch, err
		}
		patch.TextColor = &color
	}
	if in.BackgroundColor != nil {
		color, err := sheet.ParseColor(*in.BackgroundColor)
		if err != nil {
			return patch, err
		}
		patch.BackgroundColor = &color
	}
	return patch, nil
}

// sheetEntry owns one open sheet. mu serializes every action on it.
type sheetEntry struct {
	mu      sync.Mutex
	id      string
	sheet   *sheet.Sheet
	adapter *persist.Adapter
}

// indexingPersister saves through the adapter and then refreshes the
// workspace index.
type indexingPersister struct {
	sheetID string
	adapter *persist.Adapter
	search  *search.Service
}

func (p indexingPersister) Load(ctx context.Context) ([]string, bool) {
	return p.adapter.Load(ctx)
}

func (p indexingPersister) Save(ctx context.Context, content []string) {
	p.adapter.Save(ctx, content)
	p.search.IndexSheet(p.sheetID, content)
}

type Service struct {
	config  config.Config
	backend *backend.Backend
	search  *search.Service

	mu     sync.Mutex
	sheets map[string]*sheetEntry
}

// New creates the sheet service. meili may be nil, in which case workspace
// search always scans.
func New(cfg config.Config, b *backend.Backend, meili *search.Meili) *Service {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1000
	}
	if cfg.Columns <= 0 {
		cfg.Columns = 10
	}
	if cfg.StorageKey == "" {
		cfg.StorageKey = "spreadsheetData"
	}
	s := &Service{
		config:  cfg,
		backend: b,
		sheets:  make(map[string]*sheetEntry),
	}
	s.search = search.NewService(meili, s.Scanner())
	return s
}

// Scanner returns the literal fallback for workspace search: a SQL scan
// when the backend is postgres, otherwise a scan of the open sheets.
func (s *Service) Scanner() search.Scanner {
	if s.backend != nil && s.backend.DB != nil {
		return search.NewPgScan(s.backend.DB, search.SheetKeys{
			Base:    s.config.StorageKey,
			Key:     s.storageKey,
			SheetID: s.sheetIDFromKey,
		})
	}
	return search.ScanFunc(s.scanOpenSheets)
}

func (s *Service) Can(role rbac.Role, action rbac.Action) bool {
	return rbac.Can(role, action)
}

func (s *Service) Ping(ctx context.Context) error {
	if s.backend == nil {
		return errors.New("no backend configured")
	}
	return s.backend.Store.Ping(ctx)
}

func (s *Service) BackendName() string {
	if s.backend == nil {
		return "none"
	}
	return s.backend.Name
}

// SaveFailures sums persistence errors over every open sheet.
func (s *Service) SaveFailures() (int64, int) {
	s.mu.Lock()
	entries := make([]*sheetEntry, 0, len(s.sheets))
	for _, entry := range s.sheets {
		entries = append(entries, entry)
	}
	s.mu.Unlock()

	var total int64
	for _, entry := range entries {
		total += entry.adapter.Failures()
	}
	return total, len(entries)
}

// SheetKey maps a sheet id to its persistence key under base.
func SheetKey(base, sheetID string) string {
	if sheetID == DefaultSheetID {
		return base
	}
	return base + ":" + sheetID
}

func (s *Service) storageKey(sheetID string) string {
	return SheetKey(s.config.StorageKey, sheetID)
}

func (s *Service) sheetIDFromKey(key string) (string, bool) {
	if key == s.config.StorageKey {
		return DefaultSheetID, true
	}
	id, ok := strings.CutPrefix(key, s.config.StorageKey+":")
	if !ok || !sheetIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

// ValidateSheetID rejects ids that cannot appear in a storage key.
func ValidateSheetID(sheetID string) error {
	if !sheetIDPattern.MatchString(sheetID) {
		return domainError(http.StatusBadRequest, "INVALID_SHEET_ID", "sheet id must be 1-64 letters, digits, '-' or '_'", map[string]any{"sheetId": sheetID})
	}
	return nil
}

func (s *Service) entry(ctx context.Context, sheetID string) (*sheetEntry, error) {
	if err := ValidateSheetID(sheetID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	entry, ok := s.sheets[sheetID]
	s.mu.Unlock()
	if ok {
		return entry, nil
	}

	// Load outside s.mu: a slow backend read must not stall other sheets.
	adapter := persist.NewAdapter(s.backend.Store, s.storageKey(sheetID), s.config.Capacity)
	opened := &sheetEntry{
		id:      sheetID,
		adapter: adapter,
		sheet: sheet.Open(ctx, sheet.Options{
			Capacity:     s.config.Capacity,
			HistoryLimit: s.config.HistoryLimit,
			Persister:    indexingPersister{sheetID: sheetID, adapter: adapter, search: s.search},
		}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.sheets[sheetID]; ok {
		return entry, nil
	}
	s.sheets[sheetID] = opened
	return opened, nil
}

// withSheet runs fn holding the sheet's lock.
func (s *Service) withSheet(ctx context.Context, sheetID string, fn func(*sheet.Sheet) error) error {
	entry, err := s.entry(ctx, sheetID)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.sheet)
}

// CreateSheet opens a fresh sheet under a new id and stores its blank
// content.
func (s *Service) CreateSheet(ctx context.Context) (map[string]any, error) {
	sheetID := util.NewID("sheet", 8)
	entry, err := s.entry(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.adapter.Save(ctx, entry.sheet.Content())
	return map[string]any{
		"sheetId": sheetID,
		"view":    entry.sheet.View("", s.config.Columns),
	}, nil
}

func (s *Service) View(ctx context.Context, sheetID, term string) (map[string]any, error) {
	var view sheet.View
	err := s.withSheet(ctx, sheetID, func(sh *sheet.Sheet) error {
		view = sh.View(term, s.config.Columns)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"sheetId": sheetID, "view": view}, nil
}

// act runs a mutation and returns its outcome with the refreshed view.
func (s *Service) act(ctx context.Context, sheetID, term string, fn func(*sheet.Sheet) (map[string]any, error)) (map[string]any, error) {
	var payload map[string]any
	err := s.withSheet(ctx, sheetID, func(sh *sheet.Sheet) error {
		result, err := fn(sh)
		if err != nil {
			return err
		}
		payload = result
		if payload == nil {
			payload = map[string]any{}
		}
		payload["sheetId"] = sheetID
		payload["view"] = sh.View(term, s.config.Columns)
		return nil
	})
	return payload, err
}

func (s *Service) Select(ctx context.Context, sheetID string, index int, term string) (map[string]any, error) {
	return s.act(ctx, sheetID, term, func(sh *sheet.Sheet) (map[string]any, error) {
		if err := sh.Select(index); err != nil {
			return nil, fmt.Errorf("select cell: %w", err)
		}
		return map[string]any{"applied": true}, nil
	})
}

func (s *Service) UpdateDraft(ctx context.Context, sheetID, text, term string) (map[string]any, error) {
	return s.act(ctx, sheetID, term, func(sh *sheet.Sheet) (map[string]any, error) {
		if !sh.Editing().Active {
			return nil, sheet.ErrNoActiveEdit
		}
		sh.UpdateDraft(text)
		return map[string]any{"applied": true}, nil
	})
}

func (s *Service) Commit(ctx context.Context, sheetID, term string) (map[string]any, error) {
	return s.act(ctx, sheetID, term, func(sh *sheet.Sheet) (map[string]any, error) {
		written, err := sh.Commit(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"applied": true, "written": written}, nil
	})
}

// SetFormat applies input to the cell under edit. With no edit open the
// input is not validated; the call is a no-op either way.
func (s *Service) SetFormat(ctx context.Context, sheetID string, input FormatInput, term string) (map[string]any, error) {
	return s.act(ctx, sheetID, term, func(sh *sheet.Sheet) (map[string]any, error) {
		if !sh.Editing().Active {
			return nil, sheet.ErrNoActiveEdit
		}
		patch, err := input.patch()
		if err != nil {
			return nil, err
		}
		if err := sh.SetFormat(patch); err != nil {
			return nil, err
		}
		return map[string]any{"applied": true}, nil
	})
}

func (s *Service) Undo(ctx context.Context, sheetID, term string) (map[string]any, error) {
	return s.act(ctx, sheetID, term, func(sh *sheet.Sheet) (map[string]any, error) {
		return map[string]any{"applied": sh.Undo(ctx)}, nil
	})
}

func (s *Service) Redo(ctx context.Context, sheetID, term string) (map[string]any, error) {
	return s.act(ctx, sheetID, term, func(sh *sheet.Sheet) (map[string]any, error) {
		return map[string]any{"applied": sh.Redo(ctx)}, nil
	})
}

func (s *Service) Merge(ctx context.Context, sheetID, term string) (map[string]any, error) {
	return s.act(ctx, sheetID, term, func(sh *sheet.Sheet) (map[string]any, error) {
		r, err := sh.Merge(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"applied": true, "range": r}, nil
	})
}

func (s *Service) Unmerge(ctx context.Context, sheetID string, index int, term string) (map[string]any, error) {
	return s.act(ctx, sheetID, term, func(sh *sheet.Sheet) (map[string]any, error) {
		r, ok, err := sh.Unmerge(index)
		if err != nil {
			return nil, err
		}
		payload := map[string]any{"applied": ok}
		if ok {
			payload["range"] = r
		}
		return payload, nil
	})
}

// Export renders the sheet. CSV carries the content filtered by term, the
// full content when term is empty.
func (s *Service) Export(ctx context.Context, sheetID string, format export.Format, term string) (*export.Result, error) {
	var req export.Request
	err := s.withSheet(ctx, sheetID, func(sh *sheet.Sheet) error {
		req = export.Request{
			Format:  format,
			Title:   s.exportTitle(sheetID),
			Content: search.Filter(sh.Content(), term),
			View:    sh.View(term, s.config.Columns),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return export.Export(ctx, req)
}

func (s *Service) exportTitle(sheetID string) string {
	if sheetID == DefaultSheetID {
		return "spreadsheet"
	}
	return sheetID
}

func (s *Service) versioned() (persist.Versioned, error) {
	if s.backend != nil {
		if v, ok := s.backend.Versioned(); ok {
			return v, nil
		}
	}
	return nil, domainError(http.StatusNotFound, "REVISIONS_UNAVAILABLE", "the active backend does not keep revisions", map[string]any{"backend": s.BackendName()})
}

func (s *Service) Revisions(ctx context.Context, sheetID string, limit int) (map[string]any, error) {
	if err := ValidateSheetID(sheetID); err != nil {
		return nil, err
	}
	v, err := s.versioned()
	if err != nil {
		return nil, err
	}
	revisions, err := v.Revisions(ctx, s.storageKey(sheetID), limit)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	return map[string]any{"sheetId": sheetID, "revisions": revisions}, nil
}

func (s *Service) Revision(ctx context.Context, sheetID, hash string) (map[string]any, error) {
	if err := ValidateSheetID(sheetID); err != nil {
		return nil, err
	}
	v, err := s.versioned()
	if err != nil {
		return nil, err
	}
	data, err := v.GetRevision(ctx, s.storageKey(sheetID), hash)
	if err != nil {
		return nil, err
	}
	content, err := persist.Decode(data, -1)
	if err != nil {
		return nil, err
	}
	return map[string]any{"sheetId": sheetID, "hash": hash, "content": content}, nil
}

func (s *Service) Search(q search.Query) search.Response {
	return s.search.Search(q)
}

func (s *Service) scanOpenSheets(q search.Query) ([]search.Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	s.mu.Lock()
	entries := make([]*sheetEntry, 0, len(s.sheets))
	for id, entry := range s.sheets {
		if q.SheetID != "" && id != q.SheetID {
			continue
		}
		entries = append(entries, entry)
	}
	s.mu.Unlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	var results []search.Result
	for _, entry := range entries {
		entry.mu.Lock()
		content := entry.sheet.Content()
		entry.mu.Unlock()
		results = append(results, search.ScanContent(entry.id, content, q.Text)...)
	}
	return search.Page(results, q.Limit, q.Offset), len(results), nil
}

func (s *Service) Close() {
	s.search.Close()
	if s.backend != nil {
		_ = s.backend.Close()
	}
}
