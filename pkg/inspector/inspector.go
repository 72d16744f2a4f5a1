// Package inspector derives the editable field rows shown for the currently
// selected diagram part.
//
// The inspector is a form over the selected record's attribute map: one row
// per attribute, pre-populated with the current value. The identity key is
// rendered read-only; link endpoints come right after it. Field edits are
// reported to the state synchronizer as live updates while typing and as a
// committed update when a field loses focus — that protocol belongs to the
// hosting UI, this package only decides what the rows are and how values are
// displayed.
package inspector

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kheller/diagrid/pkg/diagram"
)

// Row is one line of the inspector form.
type Row struct {
	Field    string
	Value    string
	ReadOnly bool
}

// positionFields holds attribute names treated as serialized 2D positions
// for display.
var positionFields = map[string]bool{"loc": true}

// Rows derives the inspector rows for a selected part: the read-only key
// first, link endpoints next, then the part's attributes in sorted order.
// A nil part yields no rows.
func Rows(p diagram.Part) []Row {
	if p == nil {
		return nil
	}

	rows := []Row{{Field: "key", Value: strconv.Itoa(p.PartKey()), ReadOnly: true}}
	if l, ok := p.(*diagram.Link); ok {
		rows = append(rows,
			Row{Field: "from", Value: strconv.Itoa(l.From)},
			Row{Field: "to", Value: strconv.Itoa(l.To)},
		)
	}

	attrs := p.PartAttrs()
	fields := make([]string, 0, len(attrs))
	for f := range attrs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, f := range fields {
		rows = append(rows, Row{Field: f, Value: DisplayValue(f, attrs[f])})
	}
	return rows
}

// DisplayValue formats an attribute value for the form. Position attributes
// are redisplayed with each coordinate rounded to the nearest integer for
// readability; the stored precision is untouched. Everything else renders
// with %v.
func DisplayValue(field string, v any) string {
	s := fmt.Sprintf("%v", v)
	if positionFields[field] {
		return formatPosition(s)
	}
	return s
}

// formatPosition rounds a serialized "x y" position to integer coordinates.
// Text that does not parse as two numbers is returned unchanged;
// interpretation of malformed values is deferred to consumers.
func formatPosition(s string) string {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return s
	}
	x, errX := strconv.ParseFloat(parts[0], 64)
	y, errY := strconv.ParseFloat(parts[1], 64)
	if errX != nil || errY != nil {
		return s
	}
	return fmt.Sprintf("%d %d", int(math.Round(x)), int(math.Round(y)))
}
