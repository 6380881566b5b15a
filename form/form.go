// Package form holds the declarative field schemas shared by request
// binding, validation, rendering and record construction.
package form

import (
	"cafes/model"
	"errors"
	"github.com/go-playground/validator/v10"
	"net/url"
	"reflect"
	"strings"
)

// CSRFField is the hidden input every form posts back.
const CSRFField = "csrf_token"

// NewCafe is the add-cafe submission. The form tag is the input name, label
// is shown next to the input.
type NewCafe struct {
	Name         string `form:"name" label:"Cafe Name" binding:"required"`
	MapURL       string `form:"map_url" label:"Cafe location on Google Maps (URL)" binding:"required,http_url"`
	ImgURL       string `form:"img_url" label:"Image URL" binding:"required,http_url"`
	Location     string `form:"location" label:"City" binding:"required"`
	HasSockets   bool   `form:"has_sockets" label:"Do you have sockets for visitors?"`
	HasToilet    bool   `form:"has_toilet" label:"Do you have WC for visitors?"`
	HasWifi      bool   `form:"has_wifi" label:"Do you have WiFi?"`
	CanTakeCalls bool   `form:"can_take_calls" label:"Can you take calls?"`
	Seats        string `form:"seats" label:"How many seats do you have?" binding:"required"`
	CoffeePrice  string `form:"coffee_price" label:"What is the price for the coffee?" binding:"required"`
}

// ToCafe builds the record to insert, prefixing the coffee price with the
// currency symbol.
func (f NewCafe) ToCafe(currency string) model.Cafe {
	seats := f.Seats
	price := currency + f.CoffeePrice
	return model.Cafe{
		Name:         f.Name,
		MapURL:       f.MapURL,
		ImgURL:       f.ImgURL,
		Location:     f.Location,
		HasSockets:   f.HasSockets,
		HasToilet:    f.HasToilet,
		HasWifi:      f.HasWifi,
		CanTakeCalls: f.CanTakeCalls,
		Seats:        &seats,
		CoffeePrice:  &price,
	}
}

// Trim strips surrounding whitespace so "   " counts as missing.
func (f *NewCafe) Trim() {
	f.Name = strings.TrimSpace(f.Name)
	f.MapURL = strings.TrimSpace(f.MapURL)
	f.ImgURL = strings.TrimSpace(f.ImgURL)
	f.Location = strings.TrimSpace(f.Location)
	f.Seats = strings.TrimSpace(f.Seats)
	f.CoffeePrice = strings.TrimSpace(f.CoffeePrice)
}

// StripCurrency returns a copy of values whose coffee_price has a leading
// currency symbol removed, so the prefix applied by ToCafe is never doubled.
func StripCurrency(values url.Values, symbol string) url.Values {
	price, ok := values["coffee_price"]
	if !ok || len(price) == 0 || symbol == "" {
		return values
	}
	out := make(url.Values, len(values))
	for k, v := range values {
		out[k] = v
	}
	trimmed := strings.TrimSpace(price[0])
	if strings.HasPrefix(trimmed, symbol) {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, symbol))
	}
	out["coffee_price"] = []string{trimmed}
	return out
}

type DeleteCafe struct {
	Name string `form:"name" label:"Cafe Name" binding:"required"`
}

func (f *DeleteCafe) Trim() {
	f.Name = strings.TrimSpace(f.Name)
}

// Errors maps an input name to its messages.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e Errors) Get(field string) []string {
	return e[field]
}

func (e Errors) Empty() bool {
	return len(e) == 0
}

// FromValidation converts validator errors into per-input messages. Any other
// error is reported against the form as a whole under "".
func FromValidation(err error, schema any) Errors {
	errs := Errors{}
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("", err.Error())
		return errs
	}

	t := reflect.TypeOf(schema)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for _, fe := range verrs {
		name := fe.StructField()
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if tag := sf.Tag.Get("form"); tag != "" {
				name = tag
			}
		}
		errs.Add(name, message(fe.Tag()))
	}
	return errs
}

func message(tag string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "url", "http_url":
		return "Invalid URL."
	default:
		return "Invalid value."
	}
}
