package querybuilder

import (
	"reflect"
	"strings"

	crerr "github.com/cockroachdb/errors"
)

// InsertModels builds one multi-row INSERT from db-tagged structs. All models
// must share the same column set.
func InsertModels[T any](table string, models []T, suffix string) (string, []any, error) {
	if len(models) == 0 {
		return "", nil, crerr.New("insert models are required")
	}

	b := InsertInto(table).Suffix(suffix)
	var first []string
	for i, model := range models {
		cols, vals, err := columnsAndValuesFromModel(model)
		if err != nil {
			return "", nil, crerr.Wrapf(err, "model %d", i)
		}
		if i == 0 {
			first = cols
			b.Columns(cols...)
		} else if strings.Join(cols, ",") != strings.Join(first, ",") {
			return "", nil, crerr.Newf("model %d columns differ from model 0", i)
		}
		b.Values(vals...)
	}
	return b.ToSQL()
}

func columnsAndValuesFromModel(model any) ([]string, []any, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer || value.Kind() == reflect.Interface {
		if value.IsNil() {
			return nil, nil, crerr.New("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, nil, crerr.New("model must be struct")
	}

	typ := value.Type()
	cols := make([]string, 0, typ.NumField())
	vals := make([]any, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" {
			continue
		}
		col := strings.TrimSpace(strings.Split(field.Tag.Get("db"), ",")[0])
		if col == "" || col == "-" {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, value.Field(i).Interface())
	}

	if len(cols) == 0 {
		return nil, nil, crerr.New("model has no db columns")
	}
	return cols, vals, nil
}
