// Package fitstable decodes FITS binary-table extensions into rows of named
// column values. Whole files are decoded at once; the tables dailyqa reads
// are a few thousand rows at most.
package fitstable

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"

	"github.com/banshee-data/dailyqa/internal/fsutil"
)

// ErrNoTable is returned when a file has no table extension with the
// requested name.
var ErrNoTable = errors.New("fitstable: no such table")

// ErrNoColumn is returned by the Row accessors for a missing column.
var ErrNoColumn = errors.New("fitstable: no such column")

// File is a decoded FITS file holding only its table extensions.
type File struct {
	Tables []*Table
}

// Table is one decoded binary or ASCII table extension.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Row maps column names to their decoded Go values.
type Row map[string]interface{}

// Read opens path on fsys and decodes it.
func Read(fsys fsutil.FileSystem, path string) (*File, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	file, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return file, nil
}

// Decode reads every table extension from r.
func Decode(r io.Reader) (*File, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := &File{}
	for _, hdu := range f.HDUs() {
		tbl, ok := hdu.(*fitsio.Table)
		if !ok {
			continue
		}
		t, err := decodeTable(tbl)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", hdu.Name(), err)
		}
		out.Tables = append(out.Tables, t)
	}
	return out, nil
}

func decodeTable(tbl *fitsio.Table) (*Table, error) {
	cols := tbl.Cols()
	t := &Table{
		Name:    tbl.Name(),
		Columns: make([]string, len(cols)),
		Rows:    make([]Row, 0, tbl.NumRows()),
	}
	for i, c := range cols {
		t.Columns[i] = c.Name
	}

	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		// An empty map asks fitsio for every column.
		data := make(map[string]interface{}, len(cols))
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, Row(data))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Table returns the extension whose EXTNAME equals name (case-insensitive).
func (f *File) Table(name string) (*Table, error) {
	for _, t := range f.Tables {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoTable, name)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Has reports whether the table carries column name.
func (t *Table) Has(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Require returns an error naming the first missing column, if any.
func (t *Table) Require(names ...string) error {
	for _, n := range names {
		if !t.Has(n) {
			return fmt.Errorf("%w: %s.%s", ErrNoColumn, t.Name, n)
		}
	}
	return nil
}

// Float returns column name as a float64. Integer, boolean and numeric
// string columns are converted.
func (r Row) Float(name string) (float64, error) {
	v, ok := r[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoColumn, name)
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: %w", name, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("column %s: unsupported type %T", name, v)
}

// FloatOr returns column name as a float64, or def when the column is
// missing or not numeric.
func (r Row) FloatOr(name string, def float64) float64 {
	f, err := r.Float(name)
	if err != nil {
		return def
	}
	return f
}

// Int returns column name as an int64. Floating-point values must be
// integral.
func (r Row) Int(name string) (int64, error) {
	v, ok := r[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoColumn, name)
	}
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("column %s: %d overflows int64", name, x)
		}
		return int64(x), nil
	case float64, float32:
		f, _ := r.Float(name)
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("column %s: %g is not integral", name, f)
		}
		return int64(f), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: %w", name, err)
		}
		return i, nil
	}
	return 0, fmt.Errorf("column %s: unsupported type %T", name, v)
}

// String returns column name as a trimmed string.
func (r Row) String(name string) (string, error) {
	v, ok := r[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoColumn, name)
	}
	switch x := v.(type) {
	case string:
		return strings.TrimRight(x, " \x00"), nil
	case []byte:
		return strings.TrimRight(string(x), " \x00"), nil
	}
	return fmt.Sprint(v), nil
}
