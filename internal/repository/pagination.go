package repository

import (
	"strconv"
	"strings"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageBounds normalises page and size and returns the row offset.
func pageBounds(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size, (page - 1) * size
}

// orderBy resolves a whitelisted sort column and direction.
func orderBy(sortBy, sortOrder string, allowed map[string]bool, fallback string) (string, string) {
	if sortBy == "" || !allowed[sortBy] {
		sortBy = fallback
	}
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return sortBy, order
}

// whereClause builds "FROM ... WHERE base AND cond..." with $n placeholders.
type whereClause struct {
	sql  string
	args []interface{}
}

func newWhere(from string, args ...interface{}) *whereClause {
	return &whereClause{sql: from, args: args}
}

// and appends cond, binding every "?" in it to arg.
func (w *whereClause) and(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.sql += " AND " + strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(w.args)))
}

func (w *whereClause) andRaw(cond string) {
	w.sql += " AND " + cond
}

func containsPattern(search string) string {
	return "%" + strings.ToLower(search) + "%"
}
