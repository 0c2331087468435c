// Package export renders entity and intent lists as CSV text.
package export

import (
	"strings"

	"github.com/lamim/nlpforge/internal/apperr"
	"github.com/lamim/nlpforge/pkg/models"
)

// Column names of the exported files
const (
	ColumnEntityName  = "Entity Name"
	ColumnIntentName  = "Intent Name"
	ColumnDescription = "Description"
)

// Messages shown when there is nothing to export
const (
	NoEntitiesMessage = "No entities to export."
	NoIntentsMessage  = "No intents to export."
)

// Record is one row: string fields kept in insertion order
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord builds a record from alternating key, value pairs.
// A trailing key without a value is ignored.
func NewRecord(pairs ...string) Record {
	var r Record
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

// Set adds or replaces a field; a new key goes to the end
func (r *Record) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the field value and whether it is present
func (r Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the field names in insertion order
func (r Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Export renders records as CSV text. The header is the first record's key
// set in insertion order, written raw. Every value is wrapped in double
// quotes with inner quotes doubled; keys missing from a record render as ""
// and keys not in the header are dropped. Rows are joined by "\n" with no
// trailing newline.
func Export(records []Record) (string, error) {
	if len(records) == 0 {
		return "", apperr.EmptyInput("nothing to export")
	}

	header := records[0].keys
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))

	for _, rec := range records {
		b.WriteByte('\n')
		for i, key := range header {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quote(rec.values[key]))
		}
	}
	return b.String(), nil
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// EntityRecords converts entities to "Entity Name"/"Description" rows
func EntityRecords(entities []models.NamedItem) []Record {
	return namedRecords(entities, ColumnEntityName)
}

// IntentRecords converts intents to "Intent Name"/"Description" rows
func IntentRecords(intents []models.NamedItem) []Record {
	return namedRecords(intents, ColumnIntentName)
}

func namedRecords(items []models.NamedItem, nameColumn string) []Record {
	records := make([]Record, 0, len(items))
	for _, it := range items {
		records = append(records, NewRecord(nameColumn, it.Name, ColumnDescription, it.Description))
	}
	return records
}

// Entities exports entities, failing with the user-facing message when empty
func Entities(entities []models.NamedItem) (string, error) {
	if len(entities) == 0 {
		return "", apperr.EmptyInput(NoEntitiesMessage)
	}
	return Export(EntityRecords(entities))
}

// Intents exports intents, failing with the user-facing message when empty
func Intents(intents []models.NamedItem) (string, error) {
	if len(intents) == 0 {
		return "", apperr.EmptyInput(NoIntentsMessage)
	}
	return Export(IntentRecords(intents))
}
