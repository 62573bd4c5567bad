// Package testutil provides shared test utilities and fixtures.
//
// The FITS builders write real binary-table files with fitsio so that the
// readers under test see the same bytes a production reduction would leave
// on disk.
package testutil

import (
	"bytes"
	"fmt"
	"reflect"
	"testing"

	"github.com/astrogo/fitsio"

	"github.com/banshee-data/dailyqa/internal/fsutil"
)

// TableSpec describes one binary-table extension. Rows must be a slice of
// structs; each field becomes a column named by its `fits` tag.
type TableSpec struct {
	Name string
	Rows interface{}
}

// EncodeFITS builds a FITS file with an empty primary HDU followed by one
// binary table per spec, in order.
func EncodeFITS(tables ...TableSpec) ([]byte, error) {
	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	if err != nil {
		return nil, err
	}

	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return nil, err
	}
	if err := f.Write(phdu); err != nil {
		return nil, err
	}

	for _, spec := range tables {
		if err := writeTable(f, spec); err != nil {
			return nil, fmt.Errorf("table %s: %w", spec.Name, err)
		}
	}

	if err := f.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTable(f *fitsio.File, spec TableSpec) error {
	rv := reflect.ValueOf(spec.Rows)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() != reflect.Struct {
		return fmt.Errorf("rows must be a slice of structs, got %T", spec.Rows)
	}

	cols, err := columnsFor(rv.Type().Elem())
	if err != nil {
		return err
	}

	tbl, err := fitsio.NewTable(spec.Name, cols, fitsio.BINARY_TBL)
	if err != nil {
		return err
	}
	defer tbl.Close()

	for i := 0; i < rv.Len(); i++ {
		row := reflect.New(rv.Type().Elem())
		row.Elem().Set(rv.Index(i))
		if err := tbl.Write(row.Interface()); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}

	return f.Write(tbl)
}

func columnsFor(rt reflect.Type) ([]fitsio.Column, error) {
	cols := make([]fitsio.Column, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name := field.Tag.Get("fits")
		if name == "" {
			name = field.Name
		}

		var format string
		switch field.Type.Kind() {
		case reflect.Int64:
			format = "K"
		case reflect.Int32:
			format = "J"
		case reflect.Int16:
			format = "I"
		case reflect.Float64:
			format = "D"
		case reflect.Float32:
			format = "E"
		case reflect.Bool:
			format = "L"
		case reflect.String:
			format = "16A"
		default:
			return nil, fmt.Errorf("field %s: unsupported kind %s", field.Name, field.Type.Kind())
		}
		cols = append(cols, fitsio.Column{Name: name, Format: format})
	}
	return cols, nil
}

// WriteFITS encodes tables and stores the result at path on fsys.
func WriteFITS(t testing.TB, fsys fsutil.FileSystem, path string, tables ...TableSpec) {
	t.Helper()
	data, err := EncodeFITS(tables...)
	if err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
