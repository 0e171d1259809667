package model

import "math"

// CustomerRecord is one row of the churn dataset.
// Missing categorical values are empty strings, missing numbers are NaN.
type CustomerRecord struct {
	State                  string  `json:"state"`
	SubscriptionPlan       string  `json:"subscription_plan"`
	Gender                 string  `json:"gender,omitempty"`
	MTNDevice              string  `json:"mtn_device,omitempty"`
	ChurnStatus            string  `json:"customer_churn_status"`
	ChurnReason            string  `json:"reasons_for_churn,omitempty"`
	Age                    float64 `json:"age"`
	TenureMonths           float64 `json:"customer_tenure_in_months"`
	DataUsage              float64 `json:"data_usage"`
	TotalRevenue           float64 `json:"total_revenue"`
	SatisfactionRate       float64 `json:"satisfaction_rate"`
	NumberOfTimesPurchased float64 `json:"number_of_time_purchased"`
}

// Churned reports whether the customer left.
func (r CustomerRecord) Churned() bool { return r.ChurnStatus == ChurnYes }

// Categorical returns the value of a categorical column.
func (r CustomerRecord) Categorical(column string) (string, bool) {
	switch column {
	case ColState:
		return r.State, true
	case ColPlan:
		return r.SubscriptionPlan, true
	case ColGender:
		return r.Gender, true
	case ColDevice:
		return r.MTNDevice, true
	case ColChurnStatus:
		return r.ChurnStatus, true
	case ColChurnReason:
		return r.ChurnReason, true
	}
	return "", false
}

// Numeric returns the value of a numeric column.
func (r CustomerRecord) Numeric(column string) (float64, bool) {
	switch column {
	case ColAge:
		return r.Age, true
	case ColTenure:
		return r.TenureMonths, true
	case ColDataUsage:
		return r.DataUsage, true
	case ColTotalRevenue:
		return r.TotalRevenue, true
	case ColSatisfaction:
		return r.SatisfactionRate, true
	case ColTimesPurchased:
		return r.NumberOfTimesPurchased, true
	}
	return math.NaN(), false
}

// SetCategorical assigns a categorical column. Unknown columns are ignored.
func (r *CustomerRecord) SetCategorical(column, value string) {
	switch column {
	case ColState:
		r.State = value
	case ColPlan:
		r.SubscriptionPlan = value
	case ColGender:
		r.Gender = value
	case ColDevice:
		r.MTNDevice = value
	case ColChurnStatus:
		r.ChurnStatus = value
	case ColChurnReason:
		r.ChurnReason = value
	}
}

// SetNumeric assigns a numeric column. Unknown columns are ignored.
func (r *CustomerRecord) SetNumeric(column string, value float64) {
	switch column {
	case ColAge:
		r.Age = value
	case ColTenure:
		r.TenureMonths = value
	case ColDataUsage:
		r.DataUsage = value
	case ColTotalRevenue:
		r.TotalRevenue = value
	case ColSatisfaction:
		r.SatisfactionRate = value
	case ColTimesPurchased:
		r.NumberOfTimesPurchased = value
	}
}

// EmptyRecord returns a record with every numeric field missing.
func EmptyRecord() CustomerRecord {
	nan := math.NaN()
	return CustomerRecord{
		Age:                    nan,
		TenureMonths:           nan,
		DataUsage:              nan,
		TotalRevenue:           nan,
		SatisfactionRate:       nan,
		NumberOfTimesPurchased: nan,
	}
}

// View is read-only indexed access to customer rows.
type View interface {
	Len() int
	At(i int) CustomerRecord
	Has(column string) bool
}

// Dataset is the immutable result of loading a churn file. Rows and medians
// are only reachable through copying accessors.
type Dataset struct {
	ID      string    `json:"id"`     // content digest, the snapshot identity
	Source  string    `json:"source"` // resolved file path
	Schema  Schema    `json:"schema"`
	Columns []string  `json:"columns"` // present columns in file order
	Stats   LoadStats `json:"stats"`

	records []CustomerRecord
	medians map[string]float64 // global medians used for imputation
	present map[string]bool
}

// NewDataset builds a Dataset; the records slice and medians map are owned by
// the dataset afterwards.
func NewDataset(id, source string, schema Schema, columns []string, medians map[string]float64, records []CustomerRecord) *Dataset {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	if medians == nil {
		medians = map[string]float64{}
	}
	return &Dataset{
		ID:      id,
		Source:  source,
		Schema:  schema,
		Columns: columns,
		records: records,
		medians: medians,
		present: present,
	}
}

func (d *Dataset) Len() int                { return len(d.records) }
func (d *Dataset) At(i int) CustomerRecord { return d.records[i] }
func (d *Dataset) Has(column string) bool  { return d.present[column] }

// Records returns a copy of every row.
func (d *Dataset) Records() []CustomerRecord {
	return append([]CustomerRecord(nil), d.records...)
}

// Median returns the imputation median of column.
func (d *Dataset) Median(column string) (float64, bool) {
	v, ok := d.medians[column]
	return v, ok
}

// Medians returns a copy of the imputation medians by column.
func (d *Dataset) Medians() map[string]float64 {
	out := make(map[string]float64, len(d.medians))
	for k, v := range d.medians {
		out[k] = v
	}
	return out
}

// FilteredView is a subset of a parent view. Holds indices, never copies rows.
type FilteredView struct {
	parent  View
	indices []int
}

// NewFilteredView wraps parent with the given row indices.
func NewFilteredView(parent View, indices []int) *FilteredView {
	return &FilteredView{parent: parent, indices: indices}
}

func (v *FilteredView) Len() int                { return len(v.indices) }
func (v *FilteredView) At(i int) CustomerRecord { return v.parent.At(v.indices[i]) }
func (v *FilteredView) Has(column string) bool  { return v.parent.Has(column) }

// Indices returns the parent row indices of the view.
func (v *FilteredView) Indices() []int { return v.indices }
