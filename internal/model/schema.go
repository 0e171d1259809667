package model

// Column names of the churn dataset
const (
	ColState          = "state"
	ColPlan           = "subscription_plan"
	ColChurnStatus    = "customer_churn_status"
	ColChurnReason    = "reasons_for_churn"
	ColGender         = "gender"
	ColDevice         = "mtn_device"
	ColAge            = "age"
	ColTenure         = "customer_tenure_in_months"
	ColDataUsage      = "data_usage"
	ColTotalRevenue   = "total_revenue"
	ColSatisfaction   = "satisfaction_rate"
	ColTimesPurchased = "number_of_time_purchased"
)

// Normalized churn status values
const (
	ChurnYes = "Yes"
	ChurnNo  = "No"
)

// FilterAll is the FilterSpec sentinel meaning "no constraint".
const FilterAll = "All"

// ColumnKind tells whether a column holds categories or numbers.
type ColumnKind string

const (
	Categorical ColumnKind = "categorical"
	Numeric     ColumnKind = "numeric"
)

// Column declares one named, typed column of the dataset.
type Column struct {
	Name     string     `json:"name" yaml:"name"`
	Kind     ColumnKind `json:"kind" yaml:"kind"`
	Required bool       `json:"required" yaml:"required"` // loading fails without it
	Impute   bool       `json:"impute" yaml:"impute"`     // missing values filled with the global median
}

// Schema is the fixed column set known at construction time.
type Schema struct {
	Columns []Column `json:"columns" yaml:"columns"`
}

// ChurnSchema is the schema of the customer churn file.
func ChurnSchema() Schema {
	return Schema{Columns: []Column{
		{Name: ColState, Kind: Categorical, Required: true},
		{Name: ColPlan, Kind: Categorical, Required: true},
		{Name: ColChurnStatus, Kind: Categorical, Required: true},
		{Name: ColChurnReason, Kind: Categorical},
		{Name: ColGender, Kind: Categorical},
		{Name: ColDevice, Kind: Categorical},
		{Name: ColAge, Kind: Numeric},
		{Name: ColTenure, Kind: Numeric, Impute: true},
		{Name: ColDataUsage, Kind: Numeric, Impute: true},
		{Name: ColTotalRevenue, Kind: Numeric, Impute: true},
		{Name: ColSatisfaction, Kind: Numeric},
		{Name: ColTimesPurchased, Kind: Numeric},
	}}
}

// FeatureColumns is the ordered list of model inputs.
var FeatureColumns = []string{
	ColAge, ColGender, ColState, ColTenure, ColPlan,
	ColDataUsage, ColDevice, ColSatisfaction, ColTimesPurchased, ColTotalRevenue,
}

// Column looks up a column by name.
func (s Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// IsCategorical reports whether name is a declared categorical column.
func (s Schema) IsCategorical(name string) bool {
	c, ok := s.Column(name)
	return ok && c.Kind == Categorical
}

// Required returns the names of the structural columns.
func (s Schema) Required() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Required {
			out = append(out, c.Name)
		}
	}
	return out
}
