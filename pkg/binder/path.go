package binder

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
)

// Path binds string fields tagged `path:"name"` with values returned by
// extractor, typically chi.URLParam. Fields tagged `path:"-"` are skipped.
func Path(extractor func(r *http.Request, key string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return errors.Join(ErrInvalidPath, errors.New("extractor is nil"))
		}

		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return errors.Join(ErrInvalidPath, errors.New("target must be a non-nil pointer to struct"))
		}
		rv = rv.Elem()
		rt := rv.Type()

		for i := range rt.NumField() {
			sf := rt.Field(i)
			tag, ok := sf.Tag.Lookup("path")
			if !ok || tag == "-" || !sf.IsExported() {
				continue
			}
			name, _, _ := strings.Cut(tag, ",")
			if name == "" {
				name = sf.Name
			}
			if sf.Type.Kind() != reflect.String {
				return errors.Join(ErrInvalidPath, fmt.Errorf("field %s: unsupported type %s", sf.Name, sf.Type))
			}
			if value := extractor(r, name); value != "" {
				rv.Field(i).SetString(value)
			}
		}
		return nil
	}
}
