// Package pipeline filters surviving order rows and partitions them into
// per-unit groups ahead of dispatch.
package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/input"
)

// ErrEmptyResult means a filter left zero rows. The caller surfaces a
// warning and halts; nothing is ever sent from an empty result.
var ErrEmptyResult = errors.New("no rows match the filter")

// custodyKeyword triggers the second-level description filter.
const custodyKeyword = "CUSTODIA"

// nullDescription is how missing description cells arrive from upstream
// exports (a stringified NaN).
const nullDescription = "NAN"

// Group is the set of rows sharing one normalized group key. Rows keep
// their input order; the Table shares the source header.
type Group struct {
	Key   string
	Table *input.Table
}

// NormalizeColumns trims and upper-cases every cell of the given columns in
// place. The original pipeline rewrites the unit and status columns this
// way before filtering, so rendered reports show the normalized values.
func NormalizeColumns(t *input.Table, cols ...int) {
	for _, row := range t.Rows {
		for _, col := range cols {
			if col >= 0 && col < len(row) {
				row[col] = input.Normalize(row[col])
			}
		}
	}
}

// FilterByStatus keeps rows whose status column matches the wanted status,
// comparing both sides after trim + upper-case. Returns ErrEmptyResult when
// nothing survives.
func FilterByStatus(t *input.Table, col int, status string) (*input.Table, error) {
	if col >= t.Width() {
		return nil, fmt.Errorf("status column %d is out of range for a %d-column file", col, t.Width())
	}

	want := input.Normalize(status)
	var rows [][]string
	for i := range t.Rows {
		if input.Normalize(t.Cell(i, col)) == want {
			rows = append(rows, t.Rows[i])
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("status %q: %w", status, ErrEmptyResult)
	}
	return &input.Table{Header: t.Header, Rows: rows}, nil
}

// HasCustodyKeyword reports whether a chosen status requires the
// second-level description filter.
func HasCustodyKeyword(status string) bool {
	return strings.Contains(input.Normalize(status), custodyKeyword)
}

// Descriptions lists the distinct description values of the already
// status-filtered rows, in first-seen order. Empty and stringified-NaN
// cells are excluded.
func Descriptions(t *input.Table, col int) []string {
	seen := make(map[string]bool)
	var out []string
	for i := range t.Rows {
		v := strings.TrimSpace(t.Cell(i, col))
		if v == "" || input.Normalize(v) == nullDescription {
			continue
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// FilterByDescription keeps rows whose trimmed description equals desc
// exactly. Returns ErrEmptyResult when nothing survives.
func FilterByDescription(t *input.Table, col int, desc string) (*input.Table, error) {
	if col >= t.Width() {
		return nil, fmt.Errorf("description column %d is out of range for a %d-column file", col, t.Width())
	}

	var rows [][]string
	for i := range t.Rows {
		if strings.TrimSpace(t.Cell(i, col)) == desc {
			rows = append(rows, t.Rows[i])
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("description %q: %w", desc, ErrEmptyResult)
	}
	return &input.Table{Header: t.Header, Rows: rows}, nil
}

// GroupBy partitions every row by the normalized key column. The partition
// is exhaustive: each row lands in exactly one group. Groups come back in
// sorted key order, rows inside a group in input order.
func GroupBy(t *input.Table, col int) []Group {
	byKey := make(map[string][][]string)
	for i := range t.Rows {
		key := input.Normalize(t.Cell(i, col))
		byKey[key] = append(byKey[key], t.Rows[i])
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, Group{
			Key:   key,
			Table: &input.Table{Header: t.Header, Rows: byKey[key]},
		})
	}
	return groups
}

// FilterByAttachment keeps rows whose trimmed order identifier exactly
// equals an attachment filename minus its extension. This is a one-way
// filter: rows without an attachment are dropped, not reported.
func FilterByAttachment(t *input.Table, col int, attachments map[string][]byte) (*input.Table, error) {
	if col >= t.Width() {
		return nil, fmt.Errorf("order column %d is out of range for a %d-column file", col, t.Width())
	}

	byOrder := make(map[string]bool, len(attachments))
	for name := range attachments {
		byOrder[AttachmentKey(name)] = true
	}

	var rows [][]string
	for i := range t.Rows {
		if byOrder[strings.TrimSpace(t.Cell(i, col))] {
			rows = append(rows, t.Rows[i])
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows with a matching attachment: %w", ErrEmptyResult)
	}
	return &input.Table{Header: t.Header, Rows: rows}, nil
}

// AttachmentKey strips the extension from an attachment filename and trims
// it, yielding the order identifier it is matched against.
func AttachmentKey(filename string) string {
	return strings.TrimSpace(strings.TrimSuffix(filename, filepath.Ext(filename)))
}
