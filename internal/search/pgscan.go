package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SheetKeys maps sheet ids to persistence keys and back. Base is the key of
// the default sheet; every other sheet's key is Base + ":" + id.
type SheetKeys struct {
	Base    string
	Key     func(sheetID string) string
	SheetID func(key string) (string, bool)
}

// PgScan runs literal substring search directly over the sheet_state table.
type PgScan struct {
	db   *sql.DB
	keys SheetKeys
}

func NewPgScan(db *sql.DB, keys SheetKeys) *PgScan {
	return &PgScan{db: db, keys: keys}
}

// Scan expands every stored content array and keeps the cells containing
// q.Text, matched with strpos so that LIKE metacharacters stay literal.
// Key scoping and the sheet filter run in SQL so that paging and the total
// only see matching sheets.
func (p *PgScan) Scan(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	sheetKey := ""
	if q.SheetID != "" {
		sheetKey = p.keys.Key(q.SheetID)
	}

	rows, err := p.db.QueryContext(context.Background(), `
		SELECT s.key, c.ord - 1, c.cell, COUNT(*) OVER() AS total
		FROM sheet_state s
		CROSS JOIN LATERAL jsonb_array_elements_text(convert_from(s.value, 'UTF8')::jsonb) WITH ORDINALITY AS c(cell, ord)
		WHERE strpos(c.cell, $1) > 0
		  AND (s.key = $4::text OR starts_with(s.key, $4::text || ':'))
		  AND ($5::text = '' OR s.key = $5::text)
		ORDER BY s.key, c.ord
		LIMIT $2 OFFSET $3`, q.Text, pageLimit(q.Limit), offset, p.keys.Base, sheetKey)
	if err != nil {
		return nil, 0, fmt.Errorf("pgscan query: %w", err)
	}
	defer rows.Close()

	results := []Result{}
	total := 0
	for rows.Next() {
		var key string
		var r Result
		if err := rows.Scan(&key, &r.Index, &r.Content, &total); err != nil {
			return nil, 0, fmt.Errorf("pgscan scan: %w", err)
		}
		sheetID, ok := p.keys.SheetID(key)
		if !ok {
			continue
		}
		r.SheetID = sheetID
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgscan rows: %w", err)
	}
	return results, total, nil
}
