package sqlite

import (
	"fmt"
	"regexp"
	"strings"
)

// Now returns an SQL expression for the current local date and time.
func Now() string {
	return "datetime('now', 'localtime')"
}

// Random returns an SQL expression for a random integer.
func Random() string {
	return "random()"
}

// Comparison configures ComparisonClause.
type Comparison struct {
	Exact         bool // Compare with = instead of a pattern.
	Negate        bool
	CaseSensitive bool
	Parameterised bool // Emit a ? placeholder instead of the quoted value.
}

var (
	leadingPercent  = regexp.MustCompile(`^%([^\\])`)
	trailingPercent = regexp.MustCompile(`([^\\])%$`)
	innerPercent    = regexp.MustCompile(`([^\\])%`)
)

// ComparisonClause builds a comparison of field against value. Exact
// case-insensitive comparisons use =; case-sensitive ones use GLOB with %
// wildcards rewritten to *; everything else uses LIKE.
func ComparisonClause(field, value string, opts Comparison) string {
	var comp string
	if opts.Exact && !opts.CaseSensitive {
		comp = "="
		if opts.Negate {
			comp = "!="
		}
	} else {
		comp = "LIKE"
		if opts.CaseSensitive {
			comp = "GLOB"
			value = leadingPercent.ReplaceAllString(value, "*$1")
			value = trailingPercent.ReplaceAllString(value, "$1*")
			value = innerPercent.ReplaceAllString(value, "$1*")
		}
		if opts.Negate {
			comp = "NOT " + comp
		}
	}
	if opts.Parameterised {
		return fmt.Sprintf("%s %s ?", field, comp)
	}
	return fmt.Sprintf("%s %s '%s'", field, comp, strings.ReplaceAll(value, "'", "''"))
}

var (
	formatDirective = regexp.MustCompile(`%(.)`)
	literalDatetime = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)
	nowKeyword      = regexp.MustCompile(`(?i)^now$`)
)

// datetimeFormats translates supported format directives to strftime.
var datetimeFormats = map[string]string{
	"Y": "%Y",
	"m": "%m",
	"d": "%d",
	"H": "%H",
	"i": "%M",
	"s": "%S",
	"U": "%s",
}

// FormattedDatetimeClause formats date with format, whose directives are
// %Y %m %d %H %i %s and %U (unix seconds). date is "now", a literal
// "YYYY-MM-DD HH:MM:SS" or an SQL expression.
func FormattedDatetimeClause(date, format string) (string, error) {
	var bad string
	format = formatDirective.ReplaceAllStringFunc(format, func(d string) string {
		out, ok := datetimeFormats[d[1:]]
		if !ok && bad == "" {
			bad = d
		}
		return out
	})
	if bad != "" {
		return "", fmt.Errorf("unsupported format directive %s", bad)
	}

	var modifiers []string
	if format == "%s" && date != "now" {
		modifiers = append(modifiers, "utc")
	}
	if format != "%s" && date == "now" {
		modifiers = append(modifiers, "localtime")
	}
	return fmt.Sprintf("strftime('%s', %s%s)", format, datetimeOperand(date), modifierList(modifiers)), nil
}

// DatetimeIntervalClause adds interval, an SQLite date modifier such as
// "+1 day", to date.
func DatetimeIntervalClause(date, interval string) string {
	return fmt.Sprintf("datetime(%s%s, '%s')", datetimeOperand(date), localtimeFor(date), interval)
}

// DatetimeDifferenceClause returns the difference in seconds between date1
// and date2.
func DatetimeDifferenceClause(date1, date2 string) string {
	return fmt.Sprintf("strftime('%%s', %s%s) - strftime('%%s', %s%s)",
		datetimeOperand(date1), localtimeFor(date1), datetimeOperand(date2), localtimeFor(date2))
}

func datetimeOperand(date string) string {
	switch {
	case nowKeyword.MatchString(date):
		return "'now'"
	case literalDatetime.MatchString(date):
		return "'" + date + "'"
	}
	return date
}

func localtimeFor(date string) string {
	if date == "now" {
		return modifierList([]string{"localtime"})
	}
	return ""
}

func modifierList(modifiers []string) string {
	if len(modifiers) == 0 {
		return ""
	}
	return ", '" + strings.Join(modifiers, "', '") + "'"
}
