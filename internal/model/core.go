package model

// FilterSpec maps a column name to the accepted value.
// FilterAll or an empty value means no constraint on that column.
type FilterSpec map[string]string

// Active returns the constraints that actually restrict rows.
func (f FilterSpec) Active() map[string]string {
	out := make(map[string]string, len(f))
	for col, val := range f {
		if val == "" || val == FilterAll {
			continue
		}
		out[col] = val
	}
	return out
}

// CategoryCount is a frequency for one category value
type CategoryCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// GroupRate is the churn rate of one group
type GroupRate struct {
	Label     string  `json:"label"`
	Customers int     `json:"customers"`
	Churned   int     `json:"churned"`
	ChurnRate float64 `json:"churn_rate"` // percentage
}

// GroupSum is a numeric total for one group
type GroupSum struct {
	Label string  `json:"label"`
	Total float64 `json:"total"`
}

// RevenueSummary splits revenue into total and the part lost to churn
type RevenueSummary struct {
	Total    float64 `json:"total"`
	Lost     float64 `json:"lost"`
	LossRate float64 `json:"loss_rate"` // percentage
}

// KPIs are the headline figures of the dashboard
type KPIs struct {
	TotalCustomers  int     `json:"total_customers"`
	Churned         int     `json:"churned"`
	ChurnRate       float64 `json:"churn_rate"`
	TotalRevenue    float64 `json:"total_revenue"`
	AvgSatisfaction float64 `json:"avg_satisfaction"`
}

// UsagePoint is one customer in the usage-vs-tenure scatter
type UsagePoint struct {
	Tenure      float64 `json:"tenure"`
	DataUsage   float64 `json:"data_usage"`
	ChurnStatus string  `json:"churn_status"`
}

// Dashboard is every summary computed over one view.
// Sections whose source column is absent are left nil.
type Dashboard struct {
	Filters       FilterSpec      `json:"filters"`
	KPIs          KPIs            `json:"kpis"`
	Composition   []CategoryCount `json:"composition"`
	ChurnReasons  []CategoryCount `json:"churn_reasons,omitempty"`
	Revenue       *RevenueSummary `json:"revenue,omitempty"`
	RevenueByPlan []GroupSum      `json:"revenue_by_plan,omitempty"`
	ChurnByPlan   []GroupRate     `json:"churn_by_plan"`
	ChurnByState  []CategoryCount `json:"churn_by_state"`
	UsageVsTenure []UsagePoint    `json:"usage_vs_tenure,omitempty"`
}
