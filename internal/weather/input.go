package weather

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	return v
}

// RecordInput is the client-supplied shape of a new record. Any id sent by
// the client is dropped; the store assigns one.
type RecordInput struct {
	Date         *string   `json:"date" validate:"omitempty,isodate"`
	Lat          *float64  `json:"lat"`
	Lon          *float64  `json:"lon"`
	City         *string   `json:"city"`
	State        *string   `json:"state"`
	Temperatures []float64 `json:"temperatures"`
}

// Record validates in and converts it into a Record without an id.
func (in RecordInput) Record() (Record, error) {
	if err := validate.Struct(in); err != nil {
		return Record{}, validationError(err)
	}

	rec := Record{
		Lat:          in.Lat,
		Lon:          in.Lon,
		City:         in.City,
		State:        in.State,
		Temperatures: in.Temperatures,
	}
	if in.Date != nil {
		d, _ := ParseDate(*in.Date) // checked by isodate
		rec.Date = &d
	}
	return rec, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := verrs[0]
	if fe.Tag() == "isodate" {
		return fmt.Errorf("%w: field %s got %q", ErrWrongDateFormat, fe.Field(), fe.Value())
	}
	return fmt.Errorf("field %s failed %s validation", fe.Field(), fe.Tag())
}
