package sqlite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// constraintCode is the primary SQLite result code for a constraint
// violation. Extended codes carry it in their low byte.
const constraintCode = 19

const uniqueMarker = "UNIQUE constraint failed"

// driverSuffix matches the " (2067)" extended code some drivers append.
var driverSuffix = regexp.MustCompile(`\s*\(\d+\)\s*$`)

// Classify maps a backend failure to a structured error. A unique
// constraint violation becomes KindDuplicateEntry with the conflicting
// columns (table qualifiers stripped) and the second bound parameter as the
// conflicting value. Everything else is KindGeneric. Classify never fails.
//
// The value is positional guesswork: SQLite reports the columns but never
// the value. Callers that need the exact value must correlate the error
// with the parameters of the statement they issued.
func Classify(message string, code int, query string, params []any) *types.DatabaseError {
	de := &types.DatabaseError{
		Kind:    types.KindGeneric,
		Message: message,
		Code:    code,
		SQL:     query,
		Params:  append([]any(nil), params...),
	}
	if code&0xff != constraintCode || !strings.Contains(message, uniqueMarker) {
		return de
	}
	de.Kind = types.KindDuplicateEntry
	de.Columns = uniqueColumns(message)
	if len(params) > 1 {
		de.Value = paramString(params[1])
	}
	return de
}

// uniqueColumns extracts the column list that follows the unique marker.
func uniqueColumns(message string) []string {
	i := strings.Index(message, uniqueMarker)
	if i < 0 {
		return nil
	}
	list := strings.TrimSpace(message[i+len(uniqueMarker):])
	list = strings.TrimPrefix(list, ":")
	list = driverSuffix.ReplaceAllString(list, "")

	var columns []string
	for _, tok := range strings.Split(list, ",") {
		tok = strings.TrimSpace(tok)
		if dot := strings.LastIndex(tok, "."); dot >= 0 {
			tok = tok[dot+1:]
		}
		if tok != "" {
			columns = append(columns, tok)
		}
	}
	return columns
}

// paramString renders a caller parameter the way it was bound.
func paramString(v any) string {
	p, err := bindValue(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return paramText(p)
}
