package workflow

import (
	"testing"

	"github.com/itemgrid/fieldflow/types"
)

func TestBindRowReplacesPreviousSelection(t *testing.T) {
	params := map[string]string{"selected_stale": "old", "user": "keep"}

	bindRow(params, types.SelectedRow{Fields: map[string]interface{}{"amount": 10, "name": "acme"}})

	if _, ok := params["selected_stale"]; ok {
		t.Fatal("stale selected_ entries must be cleared")
	}
	if params["selected_amount"] != "10" || params["selected_name"] != "acme" {
		t.Fatalf("unexpected row binding %v", params)
	}
	if params["user"] != "keep" {
		t.Fatal("non-selected entries must survive rebinding")
	}
}

func TestCombineRowsDeduplicatesInOrder(t *testing.T) {
	rows := []types.SelectedRow{
		{Fields: map[string]interface{}{"amount": 20, "name": "b"}},
		{Fields: map[string]interface{}{"amount": 10, "name": ""}},
		{Fields: map[string]interface{}{"amount": 20, "name": "a"}},
	}

	out := combineRows(rows)

	if out["amount"] != "20,10" {
		t.Fatalf("expected first-seen dedup 20,10, got %q", out["amount"])
	}
	if out["name"] != "b,a" {
		t.Fatalf("empty values must be dropped, got %q", out["name"])
	}
}

func TestRowValuesSuffixFilter(t *testing.T) {
	values, keys := rowValues(types.SelectedRow{
		Fields:       map[string]interface{}{"id_3": 7, "name_3": "x", "other": "y"},
		ColumnSuffix: "3",
	})

	if len(keys) != 2 || keys[0] != "id" || keys[1] != "name" {
		t.Fatalf("expected sorted stripped keys [id name], got %v", keys)
	}
	if values["id"] != "7" || values["name"] != "x" {
		t.Fatalf("unexpected values %v", values)
	}
}

func TestSubstituteEncodesAndLeavesUnknown(t *testing.T) {
	st := &runState{
		params:    map[string]string{"q": "a b", "plain": "x/y"},
		lastQuery: &types.QueryResult{ItemID: "42", LinkID: "l9", LinkType: "parent"},
	}

	if got := st.substitute("{q}-{plain}", true); got != "a+b-x%2Fy" {
		t.Fatalf("encoded substitution wrong: %q", got)
	}
	if got := st.substitute("{plain}", false); got != "x/y" {
		t.Fatalf("raw substitution wrong: %q", got)
	}
	if got := st.substitute("{itemId}/{linkId}/{linkType}", false); got != "42/l9/parent" {
		t.Fatalf("reserved tokens wrong: %q", got)
	}
	if got := st.substitute("{missing}", true); got != "{missing}" {
		t.Fatalf("unresolved tokens must stay intact: %q", got)
	}
}

func TestSubstituteParamsShadowReserved(t *testing.T) {
	st := &runState{
		params:    map[string]string{"itemId": "explicit"},
		lastQuery: &types.QueryResult{ItemID: "fromQuery"},
	}
	if got := st.substitute("{itemId}", false); got != "explicit" {
		t.Fatalf("explicit parameters take precedence over query results, got %q", got)
	}
}

func TestSplitRecipients(t *testing.T) {
	got := splitRecipients("a@x.com, b@x.com; ;c@x.com")
	want := []string{"a@x.com", "b@x.com", "c@x.com"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
