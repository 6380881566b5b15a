package form

import (
	"reflect"
	"strings"
)

type Kind string

const (
	Text     Kind = "text"
	URL      Kind = "url"
	Checkbox Kind = "checkbox"
)

// Field describes one input for the templates.
type Field struct {
	Name     string
	Label    string
	Kind     Kind
	Required bool
	Value    string
	Checked  bool
	Errors   []string
}

// Fields derives the input list from a schema's struct tags, filled with the
// submitted values and any errors.
func Fields(schema any, errs Errors) []Field {
	v := reflect.ValueOf(schema)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	t := v.Type()

	fields := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := sf.Tag.Get("form")
		if name == "" || name == "-" {
			continue
		}
		f := Field{
			Name:     name,
			Label:    sf.Tag.Get("label"),
			Kind:     Text,
			Required: hasRule(sf.Tag.Get("binding"), "required"),
			Errors:   errs.Get(name),
		}
		switch fv := v.Field(i); fv.Kind() {
		case reflect.Bool:
			f.Kind = Checkbox
			f.Checked = fv.Bool()
		case reflect.String:
			f.Value = fv.String()
			if b := sf.Tag.Get("binding"); hasRule(b, "url") || hasRule(b, "http_url") {
				f.Kind = URL
			}
		}
		fields = append(fields, f)
	}
	return fields
}

// Columns lists the input names in schema order.
func Columns(schema any) []string {
	t := reflect.TypeOf(schema)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	var cols []string
	for i := 0; i < t.NumField(); i++ {
		if name := t.Field(i).Tag.Get("form"); name != "" && name != "-" {
			cols = append(cols, name)
		}
	}
	return cols
}

func hasRule(binding, rule string) bool {
	for _, r := range strings.Split(binding, ",") {
		if r == rule {
			return true
		}
	}
	return false
}
