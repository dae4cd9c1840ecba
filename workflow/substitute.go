package workflow

import (
	"net/url"
	"regexp"
)

var tokenPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Reserved tokens resolved from the previous query-type step, enabling
// "create, then open" chains within one workflow.
const (
	tokenItemID   = "itemId"
	tokenLinkID   = "linkId"
	tokenLinkType = "linkType"
)

// substitute replaces every {name} token with the resolved user/selection
// parameter of that name, falling back to the identifiers returned by the
// previous query step for the reserved tokens. Unresolvable tokens are
// left intact. encode applies URL query escaping to substituted values,
// used for URL and item-id expressions.
func (st *runState) substitute(template string, encode bool) string {
	return tokenPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		value, ok := st.params[name]
		if !ok {
			value, ok = st.reserved(name)
		}
		if !ok {
			return m
		}
		if encode {
			return url.QueryEscape(value)
		}
		return value
	})
}

func (st *runState) reserved(name string) (string, bool) {
	if st.lastQuery == nil {
		return "", false
	}
	switch name {
	case tokenItemID:
		return st.lastQuery.ItemID, st.lastQuery.ItemID != ""
	case tokenLinkID:
		return st.lastQuery.LinkID, st.lastQuery.LinkID != ""
	case tokenLinkType:
		return st.lastQuery.LinkType, st.lastQuery.LinkType != ""
	}
	return "", false
}
