package workflow

import (
	"sort"
	"strings"

	"github.com/itemgrid/fieldflow/fields"
	"github.com/itemgrid/fieldflow/types"
)

// selectedPrefix marks parameter-map entries materialized from grid rows.
const selectedPrefix = "selected_"

// rowValues returns a row's participating fields as strings, honoring the
// column-suffix restriction: when a suffix is present only fields named
// `<field>_<suffix>` participate, under the stripped name. Keys come back
// sorted for deterministic binding order within one row.
func rowValues(row types.SelectedRow) (map[string]string, []string) {
	out := make(map[string]string, len(row.Fields))
	for name, v := range row.Fields {
		key := name
		if row.ColumnSuffix != "" {
			if !strings.HasSuffix(name, "_"+row.ColumnSuffix) {
				continue
			}
			key = strings.TrimSuffix(name, "_"+row.ColumnSuffix)
		}
		out[key] = fields.Stringify(v)
	}
	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return out, keys
}

func clearSelected(params map[string]string) {
	for k := range params {
		if strings.HasPrefix(k, selectedPrefix) {
			delete(params, k)
		}
	}
}

// bindRow replaces all selected_* entries in params with one row's fields.
// Per-row action kinds call this before each row's execution.
func bindRow(params map[string]string, row types.SelectedRow) {
	clearSelected(params)
	values, keys := rowValues(row)
	for _, k := range keys {
		params[selectedPrefix+k] = values[k]
	}
}

// bindCombined replaces all selected_* entries with the merge of every
// row: per field name the distinct non-empty values are comma-joined in
// first-seen order.
func bindCombined(params map[string]string, rows []types.SelectedRow) {
	clearSelected(params)
	for k, v := range combineRows(rows) {
		params[selectedPrefix+k] = v
	}
}

func combineRows(rows []types.SelectedRow) map[string]string {
	seen := make(map[string]map[string]bool)
	ordered := make(map[string][]string)
	var keyOrder []string

	for _, row := range rows {
		values, keys := rowValues(row)
		for _, k := range keys {
			v := values[k]
			if v == "" {
				continue
			}
			if seen[k] == nil {
				seen[k] = make(map[string]bool)
				keyOrder = append(keyOrder, k)
			}
			if seen[k][v] {
				continue
			}
			seen[k][v] = true
			ordered[k] = append(ordered[k], v)
		}
	}

	out := make(map[string]string, len(keyOrder))
	for _, k := range keyOrder {
		out[k] = strings.Join(ordered[k], ",")
	}
	return out
}

// selectionInputs builds the extra inputs sent to parameter-dialog queries:
// every selected row's fields, combined, under the selected_ prefix.
func selectionInputs(rows []types.SelectedRow) map[string]string {
	inputs := make(map[string]string)
	bindCombined(inputs, rows)
	return inputs
}
