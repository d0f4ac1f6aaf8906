package provider

import (
	"context"
	"slices"
)

// Column names a host can project.
const (
	ColumnAccountName     = "account_name"
	ColumnAccountType     = "account_type"
	ColumnDisplayName     = "display_name"
	ColumnTypeDescriptor  = "type_descriptor"
	ColumnExportSupport   = "export_support"
	ColumnShortcutSupport = "shortcut_support"

	ColumnRowID             = "row_id"
	ColumnLabel             = "label"
	ColumnPhotoURI          = "photo_uri"
	ColumnPhotoThumbnailURI = "photo_thumb_uri"
)

var (
	directoryColumns = []string{
		ColumnAccountName, ColumnAccountType, ColumnDisplayName,
		ColumnTypeDescriptor, ColumnExportSupport, ColumnShortcutSupport,
	}
	lookupColumns = []string{
		ColumnRowID, ColumnDisplayName, ColumnLabel,
		ColumnPhotoURI, ColumnPhotoThumbnailURI,
	}
)

// Cursor is a tabular answer: each row holds one value per column, in
// column order. Columns the provider does not know come back as nil.
type Cursor struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Len returns the number of rows.
func (c *Cursor) Len() int { return len(c.Rows) }

// Value returns the cell of row i under column, or nil.
func (c *Cursor) Value(i int, column string) any {
	j := slices.Index(c.Columns, column)
	if j < 0 || i < 0 || i >= len(c.Rows) {
		return nil
	}
	return c.Rows[i][j]
}

// Query answers a read on path. An empty projection selects the default
// columns of the request shape. The photo path is a stream, not a table,
// and yields ErrNotFound here just like unknown paths.
func (p *Provider) Query(ctx context.Context, path string, projection []string) (*Cursor, error) {
	route, number := Match(path)
	switch route {
	case RouteDirectories:
		info := p.DescribeSelf()
		return newCursor(projection, directoryColumns, directoryRow(info)), nil
	case RoutePhoneLookup:
		rows, err := p.LookupNumber(ctx, number)
		if err != nil {
			return nil, err
		}
		values := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			values = append(values, lookupRow(r))
		}
		return newCursor(projection, lookupColumns, values...), nil
	}
	p.log.Debugf("Query on unsupported path %q", path)
	return nil, ErrNotFound
}

func newCursor(projection, defaults []string, rows ...map[string]any) *Cursor {
	if len(projection) == 0 {
		projection = defaults
	}
	c := &Cursor{Columns: slices.Clone(projection), Rows: make([][]any, 0, len(rows))}
	for _, values := range rows {
		row := make([]any, len(c.Columns))
		for i, col := range c.Columns {
			row[i] = values[col]
		}
		c.Rows = append(c.Rows, row)
	}
	return c
}

func directoryRow(info DirectoryInfo) map[string]any {
	export, _ := info.ExportSupport.MarshalText()
	shortcut, _ := info.ShortcutSupport.MarshalText()
	return map[string]any{
		ColumnAccountName:     info.AccountName,
		ColumnAccountType:     info.AccountType,
		ColumnDisplayName:     info.DisplayName,
		ColumnTypeDescriptor:  info.TypeDescriptor,
		ColumnExportSupport:   string(export),
		ColumnShortcutSupport: string(shortcut),
	}
}

func lookupRow(r LookupRow) map[string]any {
	return map[string]any{
		ColumnRowID:             r.RowID,
		ColumnDisplayName:       r.DisplayName,
		ColumnLabel:             r.Label,
		ColumnPhotoURI:          r.PhotoURI,
		ColumnPhotoThumbnailURI: r.PhotoThumbnailURI,
	}
}
