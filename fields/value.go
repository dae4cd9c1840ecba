// Package fields is the value reader: it normalizes, types, compares and
// stringifies field values so that the rule and workflow engines never care
// which widget a value came from.
package fields

import (
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/itemgrid/fieldflow/types"
)

// Kind is the runtime type of a field value as seen by rule evaluation.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindDate
	KindStrings
	KindUnsupported
)

// String returns the kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindStrings:
		return "strings"
	}
	return "unsupported"
}

// Normalize maps nil to the empty string and leaves every other value
// untouched. Rule evaluation always sees the normalized form.
func Normalize(v interface{}) interface{} {
	if v == nil {
		return ""
	}
	return v
}

// RuntimeKind classifies a normalized value.
func RuntimeKind(v interface{}) Kind {
	switch v.(type) {
	case string:
		return KindString
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return KindNumber
	case bool:
		return KindBool
	case time.Time:
		return KindDate
	case []string:
		return KindStrings
	}
	return KindUnsupported
}

// Equal reports whether two field values are the same, deep-comparing
// non-primitive values (slices, maps) and using calendar equality for
// dates so that monotonic clock readings never make equal times differ.
func Equal(a, b interface{}) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok || bok {
		return aok && bok && at.Equal(bt)
	}
	switch a.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// Stringify renders a value for collaborator boundaries: dates use the
// fixed DateFormat pattern, string slices comma-join, everything else
// goes through cast.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format(types.DateFormat)
	case []string:
		return strings.Join(t, ",")
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, Stringify(e))
		}
		return strings.Join(parts, ",")
	}
	return cast.ToString(v)
}

// AsNumber coerces a value to float64 when possible.
func AsNumber(v interface{}) (float64, bool) {
	f, err := cast.ToFloat64E(v)
	return f, err == nil
}

// Record shapes are inconsistent about the casing of id columns; lookups
// go through one accessor instead of repeating the synonym list.
var (
	itemIDSynonyms = []string{"itemId", "itemID", "item_id", "id", "Id", "ID"}
	linkIDSynonyms = []string{"linkId", "linkID", "link_id"}
)

func lookup(m map[string]interface{}, names []string) (string, bool) {
	for _, n := range names {
		if v, ok := m[n]; ok && v != nil {
			s := Stringify(v)
			if s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// LookupItemID returns the record id of a row under any of its known
// spellings.
func LookupItemID(m map[string]interface{}) (string, bool) {
	return lookup(m, itemIDSynonyms)
}

// LookupLinkID returns the link id of a row under any of its known
// spellings.
func LookupLinkID(m map[string]interface{}) (string, bool) {
	return lookup(m, linkIDSynonyms)
}
