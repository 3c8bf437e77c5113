package sqlite

import (
	"regexp"
	"slices"
	"strings"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// tableConstraints are the keywords that open a table constraint rather
// than a column definition.
var tableConstraints = []string{"CONSTRAINT", "PRIMARY", "UNIQUE", "CHECK", "FOREIGN"}

// createTableHeader matches the start of a plain or temporary table
// definition. Virtual tables do not match.
var createTableHeader = regexp.MustCompile(`(?is)^\s*CREATE\s+(?:TEMP\s+|TEMPORARY\s+)?TABLE\b`)

// ParseCreateTable recovers the ordered column list from the CREATE TABLE
// statement SQLite stores in its catalog. Each Field carries the column
// name without quotes and the rest of the definition verbatim. Table
// constraints are skipped. It returns nil when sql is not a CREATE TABLE
// statement with a column list, which includes CREATE VIRTUAL TABLE.
func ParseCreateTable(sql string) []types.Field {
	lo := strings.Index(sql, "(")
	hi := strings.LastIndex(sql, ")")
	if lo < 0 || hi <= lo || !createTableHeader.MatchString(sql[:lo]) {
		return nil
	}

	var fields []types.Field
	for _, part := range splitTopLevel(sql[lo+1 : hi]) {
		part = strings.TrimSpace(part)
		if part == "" || isTableConstraint(part) {
			continue
		}
		name, spec := splitColumn(part)
		if name == "" {
			return nil
		}
		fields = append(fields, types.Field{Name: name, Spec: spec})
	}
	return fields
}

// splitTopLevel splits s on commas that are outside quotes and parentheses.
func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '[':
			quote = ']'
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func isTableConstraint(part string) bool {
	if part[0] == '"' || part[0] == '`' || part[0] == '[' {
		return false
	}
	words := strings.FieldsFunc(part, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '('
	})
	return len(words) > 0 && slices.Contains(tableConstraints, strings.ToUpper(words[0]))
}

// splitColumn separates a column definition into its unquoted name and the
// remaining specification text.
func splitColumn(def string) (string, string) {
	var closing byte
	switch def[0] {
	case '"', '`':
		closing = def[0]
	case '[':
		closing = ']'
	case '\'':
		closing = '\''
	}
	if closing == 0 {
		end := strings.IndexAny(def, " \t\r\n")
		if end < 0 {
			return def, ""
		}
		return def[:end], strings.TrimSpace(def[end:])
	}

	var name strings.Builder
	for i := 1; i < len(def); i++ {
		if def[i] != closing {
			name.WriteByte(def[i])
			continue
		}
		// A doubled quote is an escaped quote character.
		if i+1 < len(def) && def[i+1] == closing && closing != ']' {
			name.WriteByte(closing)
			i++
			continue
		}
		return name.String(), strings.TrimSpace(def[i+1:])
	}
	return "", ""
}
