package weather

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrWrongDateFormat is returned when a date filter is not YYYY-MM-DD.
	ErrWrongDateFormat = errors.New("wrong date format, expected YYYY-MM-DD")
	// ErrUnknownSortField is returned for sort tokens other than city/date.
	ErrUnknownSortField = errors.New("unknown sort field")
)

// Filter is a predicate over records. Stores translate each variant into
// their native query mechanism.
type Filter interface {
	isFilter()
}

// MatchAll matches every record.
type MatchAll struct{}

// DateEquals matches records whose date equals Date.
type DateEquals struct {
	Date Date
}

// CityEquals matches records whose lower-cased city equals City.
// City is already lower-cased.
type CityEquals struct {
	City string
}

// CityIn matches records whose lower-cased city is one of Cities.
// Cities are already lower-cased; an empty set matches nothing.
type CityIn struct {
	Cities []string
}

// And matches records satisfying every one of Filters.
type And struct {
	Filters []Filter
}

func (MatchAll) isFilter()   {}
func (DateEquals) isFilter() {}
func (CityEquals) isFilter() {}
func (CityIn) isFilter()     {}
func (And) isFilter()        {}

// Field names a sortable record attribute.
type Field string

const (
	FieldID   Field = "id"
	FieldCity Field = "city"
	FieldDate Field = "date"
)

// Order is the requested result ordering.
type Order struct {
	Field      Field
	Descending bool
}

// SortKey is one step of a compound ordering.
type SortKey struct {
	Field      Field
	Descending bool
}

// Keys returns the full ordering stores must apply: the requested field
// followed by ascending id, so equal values keep id order in both directions.
func (o Order) Keys() []SortKey {
	if o.Field == "" || o.Field == FieldID {
		return []SortKey{{Field: FieldID, Descending: o.Descending}}
	}
	return []SortKey{
		{Field: o.Field, Descending: o.Descending},
		{Field: FieldID},
	}
}

// DefaultOrder is ascending id.
var DefaultOrder = Order{Field: FieldID}

// BuildFilter turns the optional date and city query values into a Filter.
// An empty string means the parameter is absent.
func BuildFilter(date, city string) (Filter, error) {
	var conditions []Filter

	if date != "" {
		d, err := ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("%w: unable to parse %q", ErrWrongDateFormat, date)
		}
		conditions = append(conditions, DateEquals{Date: d})
	}

	if city != "" {
		cities := splitCities(city)
		if len(cities) == 1 {
			conditions = append(conditions, CityEquals{City: cities[0]})
		} else {
			conditions = append(conditions, CityIn{Cities: cities})
		}
	}

	switch len(conditions) {
	case 0:
		return MatchAll{}, nil
	case 1:
		return conditions[0], nil
	default:
		return And{Filters: conditions}, nil
	}
}

// splitCities lower-cases the comma separated candidates, dropping empty
// tokens and duplicates.
func splitCities(city string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, c := range strings.Split(city, ",") {
		if c == "" {
			continue
		}
		c = strings.ToLower(c)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// BuildOrder parses a sort token such as "date" or "-city".
func BuildOrder(sort string) (Order, error) {
	if sort == "" {
		return DefaultOrder, nil
	}

	descending := strings.HasPrefix(sort, "-")
	name := strings.TrimPrefix(sort, "-")

	switch Field(name) {
	case FieldCity, FieldDate:
		return Order{Field: Field(name), Descending: descending}, nil
	default:
		return Order{}, fmt.Errorf("%w %q", ErrUnknownSortField, name)
	}
}
