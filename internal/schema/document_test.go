package schema

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestParseRejectsNonObjects(t *testing.T) {
	_, err := Parse([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrNotObject)

	_, err = Parse([]byte(`"hello"`))
	assert.ErrorIs(t, err, ErrNotObject)

	_, err = Parse([]byte(`{`))
	assert.ErrorIs(t, err, ErrNotObject)

	doc, err := Parse([]byte(`{"hero":{"bride_name":"Priya"}}`))
	require.NoError(t, err)
	name, ok := doc.Text("hero.bride_name")
	assert.True(t, ok)
	assert.Equal(t, "Priya", name)
}

func TestCloneIsDeep(t *testing.T) {
	original := Document{
		"hero":   map[string]any{"bride_name": "Priya"},
		"events": []any{map[string]any{"name": "Sangeet"}},
	}
	clone := original.Clone()

	clone["hero"].(map[string]any)["bride_name"] = "Asha"
	clone["events"].([]any)[0].(map[string]any)["name"] = "Reception"

	name, _ := original.Text("hero.bride_name")
	assert.Equal(t, "Priya", name)
	assert.Equal(t, "Sangeet", original["events"].([]any)[0].(map[string]any)["name"])
}

func TestCloneOfNilIsEmptyObject(t *testing.T) {
	var doc Document
	assert.Equal(t, Document{}, doc.Clone())
}

func TestLookupThroughJSONMap(t *testing.T) {
	doc := FromJSONMap(datatypes.JSONMap{"event": datatypes.JSONMap{"date": "2025-02-01"}})
	value, ok := doc.Lookup("event.date")
	assert.True(t, ok)
	assert.Equal(t, "2025-02-01", value)

	_, ok = doc.Lookup("event.date.day")
	assert.False(t, ok)
	_, ok = doc.Lookup("missing")
	assert.False(t, ok)
}

func TestEventDatePrecedence(t *testing.T) {
	doc := Document{
		"date": "2030-01-01",
		"hero": map[string]any{"wedding_date": "2024-12-25"},
	}
	date, ok := doc.EventDate()
	require.True(t, ok)
	assert.Equal(t, "2024-12-25", date.String())
}

func TestEventDateSkipsUnparseable(t *testing.T) {
	doc := Document{
		"hero":       map[string]any{"wedding_date": "next spring"},
		"event_date": "2025-03-09T18:30:00+05:30",
	}
	date, ok := doc.EventDate()
	require.True(t, ok)
	assert.Equal(t, Date{Year: 2025, Month: time.March, Day: 9}, date)
}

func TestEventDateMissing(t *testing.T) {
	_, ok := Document{"hero": map[string]any{"bride_name": "Priya"}}.EventDate()
	assert.False(t, ok)

	_, ok = Document{"date": 20241225}.EventDate()
	assert.False(t, ok)
}

func TestMidnightInLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	midnight := Date{Year: 2024, Month: time.December, Day: 25}.Midnight(loc)
	assert.Equal(t, "2024-12-24T18:30:00Z", midnight.UTC().Format(time.RFC3339))
}
