// Package option holds composable query modifiers for repositories.
//
// Column names passed here must come from code (descriptors, allow-lists),
// never straight from a request.
package option

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/tenantdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type QueryOptionFunc func(db *gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

func ApplyOperator(c Condition) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		op := c.Operator
		if op == "" {
			op = EQ
		}
		return db.Where(fmt.Sprintf("%s %s ?", c.Field, op), c.Value)
	})
}

// Equal is shorthand for an EQ condition.
func Equal(field string, value any) QueryOption {
	return ApplyOperator(Condition{Field: field, Operator: EQ, Value: value})
}

// likeEscaper neutralises LIKE wildcards in user input. '!' is the escape
// character because MySQL treats a backslash in a literal as an escape itself.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Search matches query as a case-insensitive substring of any column.
// Wildcards in query match literally.
func Search(columns []string, query string) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		q := strings.TrimSpace(query)
		if q == "" || len(columns) == 0 {
			return db
		}
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		clauses := make([]string, 0, len(columns))
		args := make([]any, 0, len(columns))
		for _, col := range columns {
			clauses = append(clauses, fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '!'", col))
			args = append(args, pattern)
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	})
}

func ApplyPagination(p pagination.Pagination) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		n := p.Normalize()
		return db.Limit(n.Limit).Offset(p.Offset())
	})
}

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

func WithQuerySortBy(sortBy, orderBy string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{SortBy: sortBy, OrderBy: orderBy, Allow: allow}
}

// WithSortBy orders by SortBy when allowed, newest first by default. The id
// column breaks ties so pages stay stable.
func WithSortBy(s QuerySortBy) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		col := strings.TrimSpace(s.SortBy)
		if col == "" || !s.Allow[col] {
			col = "created"
		}
		dir := "desc"
		if strings.EqualFold(strings.TrimSpace(s.OrderBy), "asc") {
			dir = "asc"
		}
		return db.Order(fmt.Sprintf("%s %s, id %s", col, dir, dir))
	})
}

// Preload eagerly loads an association, optionally with conditions.
func Preload(name string, args ...any) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Preload(name, args...)
	})
}
