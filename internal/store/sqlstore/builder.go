// internal/store/sqlstore/builder.go
package sqlstore

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

// goquCols splits a comma separated column list into identifiers.
func goquCols(list string) []any {
	parts := strings.Split(list, ",")
	cols := make([]any, 0, len(parts))
	for _, p := range parts {
		cols = append(cols, goqu.I(strings.TrimSpace(p)))
	}
	return cols
}

func goquCol(name string) exp.IdentifierExpression {
	return goqu.I(name)
}

func goquAsc(name string) exp.OrderedExpression {
	return goqu.I(name).Asc()
}
