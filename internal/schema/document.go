// Package schema holds the free-form invitation content document that is
// copied from a template into an order snapshot and then into an invite.
package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
)

var ErrNotObject = errors.New("schema_not_object")

// Document is a JSON object. Nested values are the types produced by
// encoding/json: map[string]any, []any, string, float64, bool and nil.
type Document map[string]any

// EventDatePaths are probed in order when looking for the event date.
var EventDatePaths = []string{
	"hero.wedding_date",
	"event.date",
	"event_date",
	"wedding_date",
	"date",
}

// Parse decodes raw JSON and rejects anything but an object.
func Parse(raw []byte) (Document, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, ErrNotObject
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return Document(obj), nil
}

func FromJSONMap(m datatypes.JSONMap) Document {
	return Document(m)
}

func (d Document) JSONMap() datatypes.JSONMap {
	return datatypes.JSONMap(d)
}

// Clone returns a deep copy; edits to the copy never reach d.
func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	return Document(cloneValue(map[string]any(d)).(map[string]any))
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = cloneValue(item)
		}
		return out
	case datatypes.JSONMap:
		return cloneValue(map[string]any(typed))
	case Document:
		return cloneValue(map[string]any(typed))
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return typed
	}
}

// Lookup walks a dotted path through nested objects.
func (d Document) Lookup(path string) (any, bool) {
	var current any = map[string]any(d)
	for _, key := range strings.Split(path, ".") {
		obj, ok := asObject(current)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func (d Document) Text(path string) (string, bool) {
	value, ok := d.Lookup(path)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func asObject(v any) (map[string]any, bool) {
	switch typed := v.(type) {
	case map[string]any:
		return typed, true
	case datatypes.JSONMap:
		return typed, true
	case Document:
		return typed, true
	default:
		return nil, false
	}
}

// Date is a calendar day with no time zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Midnight returns the start of the day in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	return d.Midnight(time.UTC).Format(time.DateOnly)
}

// EventDate returns the first parseable date found under EventDatePaths.
// Accepted forms are 2006-01-02 and RFC 3339; for the latter the calendar
// day is taken as written, ignoring its offset.
func (d Document) EventDate() (Date, bool) {
	for _, path := range EventDatePaths {
		raw, ok := d.Text(path)
		if !ok {
			continue
		}
		if date, ok := ParseDate(raw); ok {
			return date, true
		}
	}
	return Date{}, false
}

func ParseDate(raw string) (Date, bool) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, true
	}
	return Date{}, false
}
