package pipeline

import (
	"bytes"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"churn-insights/internal/model"
)

// Report is the plain-text insights summary over a whole dataset.
type Report struct {
	TotalCustomers int                   `json:"total_customers"`
	ChurnRate      float64               `json:"churn_rate"`
	Revenue        *model.RevenueSummary `json:"revenue,omitempty"`
	TopReasons     []model.CategoryCount `json:"top_reasons"`
	TopPlans       []model.GroupRate     `json:"top_plans"`
	RowsRejected   int                   `json:"rows_rejected"` // excluded from every figure above
}

// ReportTopN is the number of reasons and plans listed in a report.
const ReportTopN = 3

// BuildReport gathers the headline insights of v.
func BuildReport(v model.View) Report {
	r := Report{
		TotalCustomers: v.Len(),
		ChurnRate:      ChurnRate(v),
		TopReasons:     TopChurnReasons(v, ReportTopN),
		TopPlans:       ChurnRateBy(v, model.ColPlan, ReportTopN),
	}
	if rev, ok := Revenue(v); ok {
		r.Revenue = &rev
	}
	if ds, ok := v.(*model.Dataset); ok {
		r.RowsRejected = ds.Stats.RowsRejected
	}
	return r
}

// WriteTo renders the report with grouped thousands, amounts in naira.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	p := message.NewPrinter(language.English)

	p.Fprintf(&buf, "Total Customers: %d\n", r.TotalCustomers)
	p.Fprintf(&buf, "Churn Rate: %.2f%%\n", r.ChurnRate)
	if r.Revenue != nil {
		p.Fprintf(&buf, "Total Revenue: N%.2f\n", r.Revenue.Total)
		p.Fprintf(&buf, "Lost Revenue: N%.2f (%.2f%%)\n", r.Revenue.Lost, r.Revenue.LossRate)
	}
	if r.RowsRejected > 0 {
		p.Fprintf(&buf, "Note: %d rows with an invalid churn status are excluded from these totals\n", r.RowsRejected)
	}

	buf.WriteString("\nTop 3 Churn Reasons:\n")
	if len(r.TopReasons) == 0 {
		buf.WriteString("  (none)\n")
	}
	for _, c := range r.TopReasons {
		p.Fprintf(&buf, "  %-40s %d\n", c.Label, c.Count)
	}

	buf.WriteString("\nHighest Churn Plans:\n")
	if len(r.TopPlans) == 0 {
		buf.WriteString("  (none)\n")
	}
	for _, g := range r.TopPlans {
		p.Fprintf(&buf, "  %-40s %.2f%%\n", g.Label, g.ChurnRate)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}
