package query

import (
	"strconv"
	"strings"
)

// PlaceholderFormat selects how bound parameters are written in SQL text
type PlaceholderFormat int

const (
	// Question writes every parameter as ? (SQLite)
	Question PlaceholderFormat = iota
	// Dollar writes parameters as $1, $2, ... (Postgres)
	Dollar
)

// String returns the name of the format
func (f PlaceholderFormat) String() string {
	switch f {
	case Dollar:
		return "dollar"
	default:
		return "question"
	}
}

type predicate struct {
	expr string
	args []any
}

// Builder assembles a single read statement. Predicates are AND-ed and
// always carry their values as bound parameters.
type Builder struct {
	distinct bool
	columns  []string
	from     string
	joins    []string
	where    []predicate
	orderBy  []string
}

// Select starts a statement with the given result columns
func Select(columns ...string) *Builder {
	return &Builder{columns: columns}
}

// Distinct makes the statement SELECT DISTINCT
func (b *Builder) Distinct() *Builder {
	b.distinct = true
	return b
}

// From sets the driving table
func (b *Builder) From(table string) *Builder {
	b.from = table
	return b
}

// Join adds an INNER JOIN
func (b *Builder) Join(table, on string) *Builder {
	b.joins = append(b.joins, "JOIN "+table+" ON "+on)
	return b
}

// LeftJoin adds a LEFT JOIN
func (b *Builder) LeftJoin(table, on string) *Builder {
	b.joins = append(b.joins, "LEFT JOIN "+table+" ON "+on)
	return b
}

// Where adds a predicate. expr marks each parameter with ?.
func (b *Builder) Where(expr string, args ...any) *Builder {
	b.where = append(b.where, predicate{expr: expr, args: args})
	return b
}

// WhereEq adds column = value unless value is blank, in which case the
// statement stays unconstrained on that column.
func (b *Builder) WhereEq(column, value string) *Builder {
	value = strings.TrimSpace(value)
	if value == "" {
		return b
	}
	return b.Where(column+" = ?", value)
}

// OrderBy appends ordering terms
func (b *Builder) OrderBy(terms ...string) *Builder {
	b.orderBy = append(b.orderBy, terms...)
	return b
}

// Build renders the statement and its arguments in the given format
func (b *Builder) Build(format PlaceholderFormat) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(b.where))

	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(strings.Join(b.columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.from)
	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	for i, p := range b.where {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		if len(b.where) > 1 {
			sb.WriteString("(" + p.expr + ")")
		} else {
			sb.WriteString(p.expr)
		}
		args = append(args, p.args...)
	}
	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}

	return Rebind(format, sb.String()), args
}

// Rebind rewrites ? placeholders for the target format. Question marks
// inside single-quoted literals are left alone.
func Rebind(format PlaceholderFormat, sql string) string {
	if format != Dollar || !strings.Contains(sql, "?") {
		return sql
	}

	var sb strings.Builder
	sb.Grow(len(sql) + 8)
	n := 0
	quoted := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case ch == '\'':
			quoted = !quoted
			sb.WriteByte(ch)
		case ch == '?' && !quoted:
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}
