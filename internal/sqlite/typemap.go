package sqlite

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/sqlschema/pkg/types"
)

// defaultVarcharPrecision is used when a varchar has no size.
const defaultVarcharPrecision = 255

// ColumnFor compiles an abstract field type into a column specification
// for name on table. Enum and set kinds register their domain in the enum
// catalog as a side effect.
func (m *SchemaManager) ColumnFor(ctx context.Context, table, name string, ft types.FieldType) (types.ColumnSpec, error) {
	col := types.ColumnSpec{Name: name}
	switch strings.ToLower(ft.Kind) {
	case types.KindBoolean:
		col.Type = "BOOL"
		col.NotNull = true
		col.Default = strconv.FormatInt(intDefault(ft.Default), 10)
	case types.KindInt, types.KindBigInt:
		col.Type = "INTEGER"
		if ft.Precision > 0 {
			col.Type = fmt.Sprintf("INTEGER(%d)", ft.Precision)
		}
		col.NotNull = !ft.Null
		col.Default = strconv.FormatInt(intDefault(ft.Default), 10)
	case types.KindDecimal:
		col.Type = "NUMERIC"
		col.NotNull = true
		col.Default = "0"
		if _, err := strconv.ParseFloat(ft.Default, 64); err == nil {
			col.Default = ft.Default
		}
	case types.KindFloat, types.KindDouble:
		col.Type = "REAL"
	case types.KindDate, types.KindDatetime, types.KindTime, types.KindYear, types.KindText:
		col.Type = "TEXT"
	case types.KindVarchar:
		precision := ft.Precision
		if precision <= 0 {
			precision = defaultVarcharPrecision
		}
		col.Type = fmt.Sprintf("VARCHAR(%d) COLLATE NOCASE", precision)
	case types.KindEnum, types.KindSet:
		colType, err := m.enums.Register(ctx, table, name, ft.Enums, ft.Default)
		if err != nil {
			return types.ColumnSpec{}, err
		}
		col.Type = colType
		col.Enums = ft.Enums
	case types.KindID:
		col.Type = identitySpec
	default:
		return types.ColumnSpec{}, fmt.Errorf("%w: %q", types.ErrUnknownFieldKind, ft.Kind)
	}
	return col, nil
}

func intDefault(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// dataTypes maps portable type names to SQLite column types.
var dataTypes = map[string]string{
	"unsigned integer": "INT",
}

// DataType returns the SQLite column type for a portable type name, or ""
// when there is no mapping.
func DataType(name string) string {
	return dataTypes[strings.ToLower(name)]
}
