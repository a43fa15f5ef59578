package db

import (
	"fmt"
	"strconv"
	"strings"
)

// QueryBuilder assembles a parameterized WHERE clause. Every placeholder
// index is derived from the argument list at append time, so adding or
// removing a predicate cannot shift an unrelated parameter.
type QueryBuilder struct {
	args  []any
	where []string
	err   error
}

// NewQuery starts an empty builder.
func NewQuery() *QueryBuilder {
	return &QueryBuilder{}
}

// Bind appends a parameter and returns its positional marker ($n).
func (b *QueryBuilder) Bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// Where adds a condition. Each "?" in fragment is rewritten to the next
// positional marker, consuming args in order. The number of markers must
// equal len(args).
func (b *QueryBuilder) Where(fragment string, args ...any) *QueryBuilder {
	if b.err != nil {
		return b
	}
	if n := strings.Count(fragment, "?"); n != len(args) {
		b.err = fmt.Errorf("condition %q has %d placeholders for %d args", fragment, n, len(args))
		return b
	}

	var sb strings.Builder
	sb.Grow(len(fragment) + 4*len(args))
	next := 0
	for _, r := range fragment {
		if r == '?' {
			sb.WriteString(b.Bind(args[next]))
			next++
			continue
		}
		sb.WriteRune(r)
	}
	b.where = append(b.where, sb.String())
	return b
}

// WhereSQL renders the AND-combined conditions, or "TRUE" when there are none.
func (b *QueryBuilder) WhereSQL() string {
	if len(b.where) == 0 {
		return "TRUE"
	}
	return strings.Join(b.where, " AND ")
}

// Args returns the bound parameters in marker order.
func (b *QueryBuilder) Args() []any { return b.args }

// Err returns the first error recorded by Where.
func (b *QueryBuilder) Err() error { return b.err }
