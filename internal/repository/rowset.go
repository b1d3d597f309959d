package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownColumn is returned when a column is not part of a result set.
var ErrUnknownColumn = errors.New("unknown column")

// RowSet holds query results addressed by column name instead of position,
// so queries can add or reorder computed columns without breaking readers.
type RowSet struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// NewRowSet builds a RowSet from a column list and positional rows.
func NewRowSet(columns []string, rows [][]any) *RowSet {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	return &RowSet{columns: columns, index: index, rows: rows}
}

// ScanRows drains rows into a RowSet and closes them.
func ScanRows(rows *sql.Rows) (*RowSet, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return NewRowSet(columns, out), nil
}

// Columns returns the column names in result order.
func (rs *RowSet) Columns() []string { return rs.columns }

// Len returns the number of rows.
func (rs *RowSet) Len() int { return len(rs.rows) }

// Has reports whether the result set carries column.
func (rs *RowSet) Has(column string) bool {
	_, ok := rs.index[column]
	return ok
}

// Value returns the value of column in the given row.
func (rs *RowSet) Value(row int, column string) (any, error) {
	i, ok := rs.index[column]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	if row < 0 || row >= len(rs.rows) {
		return nil, fmt.Errorf("row %d out of range (%d rows)", row, len(rs.rows))
	}
	return rs.rows[row][i], nil
}

// rowReader decodes typed fields from one row, keeping the first error.
type rowReader struct {
	rs  *RowSet
	row int
	err error
}

func (r *rowReader) value(column string) any {
	if r.err != nil {
		return nil
	}
	v, err := r.rs.Value(r.row, column)
	if err != nil {
		r.err = err
		return nil
	}
	return v
}

func (r *rowReader) fail(column string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("column %s: %w", column, err)
	}
}

func (r *rowReader) Int(column string) int {
	v := r.value(column)
	if v == nil {
		return 0
	}
	n, err := toInt64(v)
	if err != nil {
		r.fail(column, err)
	}
	return int(n)
}

func (r *rowReader) Uint(column string) uint {
	n := r.Int(column)
	if n < 0 {
		r.fail(column, fmt.Errorf("negative id %d", n))
		return 0
	}
	return uint(n)
}

// OptionalUint returns nil for SQL NULL.
func (r *rowReader) OptionalUint(column string) *uint {
	if r.value(column) == nil {
		return nil
	}
	n := r.Uint(column)
	return &n
}

func (r *rowReader) String(column string) string {
	v := r.value(column)
	if v == nil {
		return ""
	}
	return toString(v)
}

// OptionalString returns nil for SQL NULL.
func (r *rowReader) OptionalString(column string) *string {
	v := r.value(column)
	if v == nil {
		return nil
	}
	s := toString(v)
	return &s
}

func (r *rowReader) Time(column string) time.Time {
	v := r.value(column)
	if v == nil {
		return time.Time{}
	}
	t, err := toTime(v)
	if err != nil {
		r.fail(column, err)
	}
	return t
}

// Bool coerces any truthy database value to a strict boolean.
func (r *rowReader) Bool(column string) bool {
	return toBool(r.value(column))
}

// Flag is Bool for computed columns a query may omit; absent means false.
func (r *rowReader) Flag(column string) bool {
	if !r.rs.Has(column) {
		return false
	}
	return r.Bool(column)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		return int64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", v)
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func toTime(v any) (time.Time, error) {
	var s string
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time", v)
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}

func toBool(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case []byte:
		return parseBoolText(string(b))
	case string:
		return parseBoolText(b)
	default:
		n, err := toInt64(v)
		return err == nil && n != 0
	}
}

func parseBoolText(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "1", "y", "yes":
		return true
	default:
		return false
	}
}
