package form

import (
	"github.com/gin-gonic/gin/binding"
	"net/url"
	"reflect"
	"strings"
)

// Schema is implemented by the submission structs in this package.
type Schema interface {
	Trim()
}

var falseValues = map[string]bool{
	"":      true,
	"false": true,
	"0":     true,
	"off":   true,
	"no":    true,
	"n":     true,
}

// Decode maps values onto dst and validates it. Checkbox inputs follow the
// browser convention: any value other than a false-ish one means checked.
func Decode(values url.Values, dst Schema) error {
	values = normalizeBools(values, dst)
	if err := binding.MapFormWithTag(dst, values, "form"); err != nil {
		return err
	}
	dst.Trim()
	return binding.Validator.ValidateStruct(dst)
}

func normalizeBools(values url.Values, schema any) url.Values {
	t := reflect.TypeOf(schema)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := make(url.Values, len(values))
	for k, v := range values {
		out[k] = v
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Type.Kind() != reflect.Bool {
			continue
		}
		name := sf.Tag.Get("form")
		v := strings.ToLower(strings.TrimSpace(out.Get(name)))
		if falseValues[v] {
			out[name] = []string{"false"}
		} else {
			out[name] = []string{"true"}
		}
	}
	return out
}
