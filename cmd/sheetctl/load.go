package main

import (
	"context"
	"fmt"

	"spreadsheet/api/internal/app"
	"spreadsheet/api/internal/backend"
	"spreadsheet/api/internal/config"
	"spreadsheet/api/internal/persist"
	"spreadsheet/api/internal/sheet"
)

// readOnly loads through an adapter and never saves. found records
// whether the load returned stored content.
type readOnly struct {
	adapter *persist.Adapter
	found   bool
}

func (r *readOnly) Load(ctx context.Context) ([]string, bool) {
	content, ok := r.adapter.Load(ctx)
	r.found = ok
	return content, ok
}

func (*readOnly) Save(context.Context, []string) {}

// loadSheet opens the requested sheet from the configured backend.
func loadSheet(ctx context.Context, cfg config.Config) (*sheet.Sheet, bool, error) {
	if err := app.ValidateSheetID(sheetID); err != nil {
		return nil, false, err
	}
	b, err := backend.Open(ctx, cfg)
	if err != nil {
		return nil, false, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	defer b.Close()

	persister := &readOnly{adapter: persist.NewAdapter(b.Store, app.SheetKey(cfg.StorageKey, sheetID), cfg.Capacity)}
	s := sheet.Open(ctx, sheet.Options{Capacity: cfg.Capacity, Persister: persister})
	return s, persister.found, nil
}
