package pipeline

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"churn-insights/internal/model"
)

// Aggregations are pure reads over a View. An empty view yields zero values
// and empty slices, never an error.

// ChurnRate is the percentage of churned customers, 0 for an empty view.
func ChurnRate(v model.View) float64 {
	churned := 0
	for i := 0; i < v.Len(); i++ {
		if v.At(i).Churned() {
			churned++
		}
	}
	return percent(float64(churned), float64(v.Len()))
}

// Revenue totals revenue and the part lost to churned customers. The second
// result is false when the view has no total_revenue column.
func Revenue(v model.View) (model.RevenueSummary, bool) {
	if !v.Has(model.ColTotalRevenue) {
		return model.RevenueSummary{}, false
	}
	var all, lost []float64
	for i := 0; i < v.Len(); i++ {
		rec := v.At(i)
		if math.IsNaN(rec.TotalRevenue) {
			continue
		}
		all = append(all, rec.TotalRevenue)
		if rec.Churned() {
			lost = append(lost, rec.TotalRevenue)
		}
	}
	total, lostTotal := floats.Sum(all), floats.Sum(lost)
	return model.RevenueSummary{
		Total:    total,
		Lost:     lostTotal,
		LossRate: percent(lostTotal, total),
	}, true
}

// TopChurnReasons counts the reasons given by churned customers, most frequent
// first. n <= 0 keeps every reason.
func TopChurnReasons(v model.View, n int) []model.CategoryCount {
	if !v.Has(model.ColChurnReason) {
		return []model.CategoryCount{}
	}
	counts := make(map[string]int)
	for i := 0; i < v.Len(); i++ {
		rec := v.At(i)
		if !rec.Churned() || rec.ChurnReason == "" {
			continue
		}
		counts[rec.ChurnReason]++
	}
	return topCounts(counts, n)
}

// ChurnRateBy groups v by a categorical column and returns each group's churn
// rate, highest first, truncated to n (n <= 0 keeps all).
func ChurnRateBy(v model.View, column string, n int) []model.GroupRate {
	out := []model.GroupRate{}
	if !v.Has(column) {
		return out
	}
	groups := make(map[string]*model.GroupRate)
	for i := 0; i < v.Len(); i++ {
		rec := v.At(i)
		label, ok := rec.Categorical(column)
		if !ok || label == "" {
			continue
		}
		g, ok := groups[label]
		if !ok {
			g = &model.GroupRate{Label: label}
			groups[label] = g
		}
		g.Customers++
		if rec.Churned() {
			g.Churned++
		}
	}
	for _, g := range groups {
		g.ChurnRate = percent(float64(g.Churned), float64(g.Customers))
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChurnRate != out[j].ChurnRate {
			return out[i].ChurnRate > out[j].ChurnRate
		}
		return out[i].Label < out[j].Label
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ChurnCountBy counts churned customers per value of a categorical column,
// highest first, truncated to n (n <= 0 keeps all).
func ChurnCountBy(v model.View, column string, n int) []model.CategoryCount {
	if !v.Has(column) {
		return []model.CategoryCount{}
	}
	counts := make(map[string]int)
	for i := 0; i < v.Len(); i++ {
		rec := v.At(i)
		if !rec.Churned() {
			continue
		}
		if label, ok := rec.Categorical(column); ok && label != "" {
			counts[label]++
		}
	}
	return topCounts(counts, n)
}

// ChurnComposition counts customers per churn status.
func ChurnComposition(v model.View) []model.CategoryCount {
	counts := make(map[string]int)
	for i := 0; i < v.Len(); i++ {
		counts[v.At(i).ChurnStatus]++
	}
	return topCounts(counts, 0)
}

// RevenueBy sums total revenue per value of a categorical column, highest first.
func RevenueBy(v model.View, column string) []model.GroupSum {
	out := []model.GroupSum{}
	if !v.Has(column) || !v.Has(model.ColTotalRevenue) {
		return out
	}
	sums := make(map[string]float64)
	for i := 0; i < v.Len(); i++ {
		rec := v.At(i)
		label, ok := rec.Categorical(column)
		if !ok || label == "" || math.IsNaN(rec.TotalRevenue) {
			continue
		}
		sums[label] += rec.TotalRevenue
	}
	for label, total := range sums {
		out = append(out, model.GroupSum{Label: label, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// KPIs are the headline dashboard figures. Absent columns contribute 0.
func KPIs(v model.View) model.KPIs {
	k := model.KPIs{TotalCustomers: v.Len()}
	var revenue, satisfaction []float64
	for i := 0; i < v.Len(); i++ {
		rec := v.At(i)
		if rec.Churned() {
			k.Churned++
		}
		if !math.IsNaN(rec.TotalRevenue) {
			revenue = append(revenue, rec.TotalRevenue)
		}
		if !math.IsNaN(rec.SatisfactionRate) {
			satisfaction = append(satisfaction, rec.SatisfactionRate)
		}
	}
	k.ChurnRate = percent(float64(k.Churned), float64(k.TotalCustomers))
	if v.Has(model.ColTotalRevenue) {
		k.TotalRevenue = floats.Sum(revenue)
	}
	if v.Has(model.ColSatisfaction) && len(satisfaction) > 0 {
		k.AvgSatisfaction = stat.Mean(satisfaction, nil)
	}
	return k
}

// UsageTenurePoints returns one scatter point per customer with both values.
// Empty when either column is absent.
func UsageTenurePoints(v model.View) []model.UsagePoint {
	out := []model.UsagePoint{}
	if !v.Has(model.ColTenure) || !v.Has(model.ColDataUsage) {
		return out
	}
	for i := 0; i < v.Len(); i++ {
		rec := v.At(i)
		if math.IsNaN(rec.TenureMonths) || math.IsNaN(rec.DataUsage) {
			continue
		}
		out = append(out, model.UsagePoint{
			Tenure:      rec.TenureMonths,
			DataUsage:   rec.DataUsage,
			ChurnStatus: rec.ChurnStatus,
		})
	}
	return out
}

// DashboardOptions select what BuildDashboard computes.
type DashboardOptions struct {
	Filters model.FilterSpec
	TopN    int // groups kept in the by-state and by-plan rankings, default 10
}

// BuildDashboard computes every dashboard section over v. Sections whose
// columns are missing are left empty.
func BuildDashboard(v model.View, opts DashboardOptions) model.Dashboard {
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	filters := opts.Filters
	if filters == nil {
		filters = model.FilterSpec{}
	}
	d := model.Dashboard{
		Filters:      filters,
		KPIs:         KPIs(v),
		Composition:  ChurnComposition(v),
		ChurnReasons: TopChurnReasons(v, 0),
		ChurnByPlan:  ChurnRateBy(v, model.ColPlan, opts.TopN),
		ChurnByState: ChurnCountBy(v, model.ColState, opts.TopN),
	}
	if rev, ok := Revenue(v); ok {
		d.Revenue = &rev
		d.RevenueByPlan = RevenueBy(v, model.ColPlan)
	}
	d.UsageVsTenure = UsageTenurePoints(v)
	return d
}

// topCounts sorts counts by frequency then label and keeps the first n (all when n <= 0).
func topCounts(counts map[string]int, n int) []model.CategoryCount {
	out := make([]model.CategoryCount, 0, len(counts))
	for label, c := range counts {
		out = append(out, model.CategoryCount{Label: label, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func percent(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}
