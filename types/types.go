package types

// Scope identifies one isolated set of fields, rules and tracked values.
// Scopes are recreated whenever a tab or window reloads; everything keyed
// by a scope must be discarded and rebuilt at that point, never patched.
type Scope struct {
	EntityType string `json:"entity_type" yaml:"entityType"`
	TabName    string `json:"tab_name" yaml:"tabName"`
	WindowID   string `json:"window_id" yaml:"windowId"`
}

// Key returns the (entityType, tabName) pair that keys a dependency index.
func (s Scope) Key() string {
	return s.EntityType + "|" + s.TabName
}

// WidgetKind describes which underlying widget holds a field's value.
// The engines never inspect widget internals; the kind only tells the
// embedder which reader/prompt variant applies.
type WidgetKind string

const (
	WidgetText        WidgetKind = "text"
	WidgetMultiline   WidgetKind = "multiline"
	WidgetNumber      WidgetKind = "number"
	WidgetCheckbox    WidgetKind = "checkbox"
	WidgetDateTime    WidgetKind = "datetime"
	WidgetChoice      WidgetKind = "choice"
	WidgetMultiChoice WidgetKind = "multichoice"
	WidgetFile        WidgetKind = "file"
	WidgetTable       WidgetKind = "table"
)

// Field is an abstract handle to one editable property on a form.
// Value is one of: string, a numeric type, bool, time.Time or []string.
// ContainerID is an opaque locator for the surrounding visual element,
// passed back to the FieldProvider verbatim and never inspected.
type Field struct {
	Name        string      `json:"name"`
	Scope       Scope       `json:"scope"`
	Kind        WidgetKind  `json:"kind"`
	Value       interface{} `json:"value"`
	ContainerID string      `json:"container_id"`
}

// Operator is the closed comparison set a dependency rule may use.
type Operator string

const (
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "notEquals"
	OpContains       Operator = "contains"
	OpNotContains    Operator = "notContains"
	OpStartsWith     Operator = "startsWith"
	OpNotStartsWith  Operator = "notStartsWith"
	OpEndsWith       Operator = "endsWith"
	OpNotEndsWith    Operator = "notEndsWith"
	OpIsEmpty        Operator = "isEmpty"
	OpIsNotEmpty     Operator = "isNotEmpty"
	OpGreaterThan    Operator = "greaterThan"
	OpGreaterOrEqual Operator = "greaterOrEqual"
	OpLessThan       Operator = "lessThan"
	OpLessOrEqual    Operator = "lessOrEqual"

	// OpExpression evaluates the rule's expected value as a boolean
	// expression over the trigger value and the window's current values.
	OpExpression Operator = "expression"
)

// Valid reports whether o belongs to the closed operator set.
func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpContains, OpNotContains,
		OpStartsWith, OpNotStartsWith, OpEndsWith, OpNotEndsWith,
		OpIsEmpty, OpIsNotEmpty,
		OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual,
		OpExpression:
		return true
	}
	return false
}

// RuleAction is what happens to the dependent field when its rule fires.
type RuleAction string

const (
	// ActionToggleVisibility shows the dependent when the rule matches and
	// hides it otherwise, cascading to the owning tab page.
	ActionToggleVisibility RuleAction = "toggleVisibility"
	// ActionRefresh reloads the dependent's remote data source whenever the
	// trigger fires, regardless of the match outcome.
	ActionRefresh RuleAction = "refresh"
)

// DependencyRule declares that DependentField is conditionally shown or
// refreshed based on the value of TriggerField. ExpectedValues is a
// comma-separated literal list coerced to the runtime type of the trigger
// value at evaluation time.
type DependencyRule struct {
	DependentField   string     `json:"dependent_field" yaml:"dependent"`
	DependentFieldID string     `json:"dependent_field_id" yaml:"dependentId"`
	TriggerField     string     `json:"trigger_field" yaml:"trigger"`
	ExpectedValues   string     `json:"expected_values" yaml:"values"`
	Operator         Operator   `json:"operator" yaml:"operator"`
	Action           RuleAction `json:"action" yaml:"action"`
}

// TrackedValue is the last known value of one field within a window,
// used to answer "has this changed" without re-reading the whole form.
type TrackedValue struct {
	WindowID  string      `json:"window_id"`
	FieldName string      `json:"field_name"`
	Original  interface{} `json:"original"`
	Current   interface{} `json:"current"`
}

// ParamKind selects the prompt widget used to elicit a user parameter.
type ParamKind string

const (
	ParamText        ParamKind = "text"
	ParamMultiline   ParamKind = "multiline"
	ParamNumber      ParamKind = "number"
	ParamDateTime    ParamKind = "datetime"
	ParamChoice      ParamKind = "choice"
	ParamMultiChoice ParamKind = "multichoice"
	ParamFile        ParamKind = "file"
	ParamTable       ParamKind = "table"
)

// UserParameter describes one just-in-time input collected before a
// workflow executes. DefaultQueryID and ChoiceQueryID optionally name
// remote queries that pre-populate the default value or the choice list.
type UserParameter struct {
	Name           string    `json:"name" yaml:"name"`
	Question       string    `json:"question" yaml:"question"`
	Kind           ParamKind `json:"kind" yaml:"kind"`
	Required       bool      `json:"required" yaml:"required"`
	DefaultValue   string    `json:"default_value" yaml:"default"`
	DefaultQueryID int       `json:"default_query_id" yaml:"defaultValueQueryId"`
	ChoiceQueryID  int       `json:"choice_query_id" yaml:"queryId"`
}

// ActionKind is the closed set of workflow step types.
type ActionKind string

const (
	KindOpenURL           ActionKind = "openUrl"
	KindOpenURLOnce       ActionKind = "openUrlOnce"
	KindExecuteQuery      ActionKind = "executeQuery"
	KindExecuteQueryOnce  ActionKind = "executeQueryOnce"
	KindOpenWindow        ActionKind = "openWindow"
	KindGenerateTextFile  ActionKind = "generateTextFile"
	KindGenerateFile      ActionKind = "generateFile"
	KindUpdateItemLink    ActionKind = "updateItemLink"
	KindRefreshItem       ActionKind = "refreshCurrentItem"
	KindRefreshAllWindows ActionKind = "refreshAllOpenedWindows"
	KindAPICall           ActionKind = "apiCall"
	KindPusher            ActionKind = "pusher"
	KindConfirmDialog     ActionKind = "actionConfirmDialog"
	KindCustom            ActionKind = "custom"
)

// Valid reports whether k belongs to the closed action-kind set.
func (k ActionKind) Valid() bool {
	switch k {
	case KindOpenURL, KindOpenURLOnce, KindExecuteQuery, KindExecuteQueryOnce,
		KindOpenWindow, KindGenerateTextFile, KindGenerateFile,
		KindUpdateItemLink, KindRefreshItem, KindRefreshAllWindows,
		KindAPICall, KindPusher, KindConfirmDialog, KindCustom:
		return true
	}
	return false
}

// ActionDescriptor is one immutable step of a workflow. Params carries the
// kind-specific configuration (URL template, query id, window spec, ...)
// and is decoded by the engine per kind. Condition, when non-empty, is a
// boolean expression gating the step: false means skip, not fail.
type ActionDescriptor struct {
	Kind           ActionKind             `json:"kind" yaml:"kind"`
	Params         map[string]interface{} `json:"params" yaml:"params"`
	UserParameters []UserParameter        `json:"user_parameters" yaml:"userParameters"`
	Condition      string                 `json:"condition" yaml:"condition"`
}

// SelectedRow is one row chosen in a results grid when a workflow runs
// from a grid action. ColumnSuffix, when set, restricts which fields
// participate in selection binding to those named `<field>_<suffix>`,
// with the suffix stripped from the bound key.
type SelectedRow struct {
	Fields       map[string]interface{} `json:"fields"`
	ColumnSuffix string                 `json:"column_suffix"`
}

// QueryResult is the outcome of a remote stored-query execution.
// Failure is signaled via Success=false plus an optional Message.
type QueryResult struct {
	Success  bool                   `json:"success"`
	Message  string                 `json:"message"`
	ItemID   string                 `json:"item_id"`
	LinkID   string                 `json:"link_id"`
	LinkType string                 `json:"link_type"`
	Text     string                 `json:"text"`
	Data     map[string]interface{} `json:"data"`
}

// WindowRef names a record to open in a new visual surface.
type WindowRef struct {
	ItemID   string `json:"item_id"`
	ItemType string `json:"item_type"`
	Title    string `json:"title"`
}

// Notification is a near-real-time message pushed to another user.
type Notification struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Message string `json:"message"`
}

// Email describes a generated-document e-mail dispatch.
type Email struct {
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
}

// DateFormat is the fixed pattern used whenever a date value crosses a
// collaborator boundary as a string.
const DateFormat = "2006-01-02 15:04:05"
