package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"

	"churn-insights/internal/model"
	"churn-insights/internal/pipeline"
	"churn-insights/internal/session"
	"churn-insights/pkg/logger"
)

// RunReader reads the training and prediction audit log.
type RunReader interface {
	ListTrainingRuns(ctx context.Context, limit int) ([]model.TrainingRun, error)
	GetTrainingRun(ctx context.Context, id string) (model.TrainingRun, error)
	ListPredictions(ctx context.Context, runID string, limit int) ([]model.PredictionRecord, error)
}

// ChurnHandler serves the dashboard, the model and the what-if predictions
// over the dataset at DataPath.
type ChurnHandler struct {
	DataPath string
	Timeout  time.Duration // how long a request waits for the model, default 30s

	session *session.Session
	runs    RunReader
	log     *logger.Logger
}

// NewChurnHandler wires a handler. runs may be nil when no store is configured.
func NewChurnHandler(dataPath string, s *session.Session, runs RunReader, log *logger.Logger) *ChurnHandler {
	return &ChurnHandler{
		DataPath: dataPath,
		Timeout:  30 * time.Second,
		session:  s,
		runs:     runs,
		log:      logger.OrNop(log),
	}
}

// HealthResponse is the answer of the health check
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service" example:"churn-insights"`
}

// DatasetInfo describes the loaded dataset snapshot
type DatasetInfo struct {
	ID            string              `json:"id"`
	Source        string              `json:"source"`
	Rows          int                 `json:"rows"`
	RowsRejected  int                 `json:"rows_rejected"` // rows dropped for an invalid churn status
	Columns       []string            `json:"columns"`
	Medians       map[string]float64  `json:"medians"`
	Stats         model.LoadStats     `json:"stats"`
	FilterOptions map[string][]string `json:"filter_options"`
}

// Health checks the service is up
// @Summary Health check
// @Description Liveness probe, does not touch the dataset
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *ChurnHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{Status: "ok", Timestamp: time.Now().UTC(), Service: "churn-insights"})
}

// GetDataset describes the current dataset
// @Summary Dataset
// @Description Snapshot ID, present columns, load statistics and filter options of the dataset
// @Tags dataset
// @Produce json
// @Success 200 {object} APIResponse{data=DatasetInfo}
// @Failure 503 {object} APIResponse "Dataset missing or unreadable"
// @Router /api/v1/dataset [get]
func (h *ChurnHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	writeOK(w, r, "ok", DatasetInfo{
		ID:            ds.ID,
		Source:        ds.Source,
		Rows:          ds.Len(),
		RowsRejected:  ds.Stats.RowsRejected,
		Columns:       ds.Columns,
		Medians:       ds.Medians(),
		Stats:         ds.Stats,
		FilterOptions: pipeline.FilterOptions(ds, pipeline.FilterColumns),
	})
}

// GetInsights computes the dashboard over the filtered dataset
// @Summary Dashboard insights
// @Description KPIs, churn composition, reasons, revenue and churn rankings over the rows matching the filters
// @Tags insights
// @Produce json
// @Param state query string false "State filter, All for no constraint"
// @Param subscription_plan query string false "Plan filter, All for no constraint"
// @Param top query int false "Groups kept in the rankings" default(10)
// @Success 200 {object} APIResponse{data=model.Dashboard}
// @Failure 400 {object} APIResponse "Invalid filter"
// @Failure 503 {object} APIResponse "Dataset missing or unreadable"
// @Router /api/v1/insights [get]
func (h *ChurnHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	spec := model.FilterSpec{}
	for _, col := range pipeline.FilterColumns {
		if val := strings.TrimSpace(q.Get(col)); val != "" {
			spec[col] = val
		}
	}
	top := 10
	if raw := q.Get("top"); raw != "" {
		n, err := cast.ToIntE(raw)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		top = n
	}

	view, err := pipeline.Filter(ds, spec)
	if err != nil {
		writeError(w, r, StatusFor(err), err.Error())
		return
	}
	writeOK(w, r, "ok", pipeline.BuildDashboard(view, pipeline.DashboardOptions{Filters: spec, TopN: top}))
}

// GetReport returns the headline insights of the whole dataset
// @Summary Insights report
// @Tags insights
// @Produce json
// @Success 200 {object} APIResponse{data=pipeline.Report}
// @Failure 503 {object} APIResponse "Dataset missing or unreadable"
// @Router /api/v1/report [get]
func (h *ChurnHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	writeOK(w, r, "ok", pipeline.BuildReport(ds))
}

// GetModel returns the metrics and feature importances of the churn model
// @Summary Model summary
// @Description Trains the model on first use, then serves it from the cache
// @Tags model
// @Produce json
// @Success 200 {object} APIResponse{data=model.ModelSummary}
// @Failure 422 {object} APIResponse "Not enough data to train"
// @Failure 503 {object} APIResponse "Dataset missing or unreadable"
// @Router /api/v1/model [get]
func (h *ChurnHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	_, m, ok := h.model(w, r)
	if !ok {
		return
	}
	writeOK(w, r, "ok", m.Summary())
}

// GetForm describes the inputs of the what-if form
// @Summary What-if form
// @Description Per model feature, the categorical options or the numeric range and default
// @Tags model
// @Produce json
// @Success 200 {object} APIResponse{data=[]model.FormField}
// @Failure 422 {object} APIResponse "Not enough data to train"
// @Failure 503 {object} APIResponse "Dataset missing or unreadable"
// @Router /api/v1/model/form [get]
func (h *ChurnHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	ds, m, ok := h.model(w, r)
	if !ok {
		return
	}
	writeOK(w, r, "ok", pipeline.Form(m, ds))
}

// Predict estimates the churn probability of a hypothetical customer
// @Summary Predict churn
// @Description Body is a JSON object with one value per model feature
// @Tags model
// @Accept json
// @Produce json
// @Param features body map[string]interface{} true "Feature values keyed by column name"
// @Success 200 {object} APIResponse{data=model.Prediction}
// @Failure 400 {object} APIResponse "Invalid or incomplete feature vector"
// @Failure 422 {object} APIResponse "Not enough data to train"
// @Failure 503 {object} APIResponse "Dataset missing or unreadable"
// @Router /api/v1/predict [post]
func (h *ChurnHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var fv pipeline.FeatureVector
	if err := render.DecodeJSON(r.Body, &fv); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	pred, err := h.session.Predict(ctx, ds, fv)
	if err != nil {
		writeError(w, r, StatusFor(err), err.Error())
		return
	}
	writeOK(w, r, "ok", pred)
}

// ListRuns returns the most recent training runs
// @Summary Training runs
// @Tags model
// @Produce json
// @Param limit query int false "Maximum runs returned" default(50)
// @Success 200 {object} APIResponse{data=[]model.TrainingRun}
// @Failure 500 {object} APIResponse "Store error"
// @Router /api/v1/runs [get]
func (h *ChurnHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeOK(w, r, "no store configured", []model.TrainingRun{})
		return
	}
	limit := cast.ToInt(r.URL.Query().Get("limit"))
	runs, err := h.runs.ListTrainingRuns(r.Context(), limit)
	if err != nil {
		h.log.Error("failed to list training runs", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to list training runs")
		return
	}
	writeOK(w, r, "ok", runs)
}

// GetRun returns one training run
// @Summary Training run
// @Tags model
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} APIResponse{data=model.TrainingRun}
// @Failure 404 {object} APIResponse "Unknown run or no store configured"
// @Router /api/v1/runs/{id} [get]
func (h *ChurnHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, r, http.StatusNotFound, "no store configured")
		return
	}
	id := chi.URLParam(r, "id")
	run, err := h.runs.GetTrainingRun(r.Context(), id)
	if err != nil {
		h.storeError(w, r, "failed to get training run", err)
		return
	}
	writeOK(w, r, "ok", run)
}

// ListRunPredictions returns the most recent predictions served by a run
// @Summary Predictions of a training run
// @Tags model
// @Produce json
// @Param id path string true "Run ID"
// @Param limit query int false "Maximum predictions returned" default(50)
// @Success 200 {object} APIResponse{data=[]model.PredictionRecord}
// @Failure 404 {object} APIResponse "Unknown run or no store configured"
// @Router /api/v1/runs/{id}/predictions [get]
func (h *ChurnHandler) ListRunPredictions(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, r, http.StatusNotFound, "no store configured")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.runs.GetTrainingRun(r.Context(), id); err != nil {
		h.storeError(w, r, "failed to get training run", err)
		return
	}
	limit := cast.ToInt(r.URL.Query().Get("limit"))
	preds, err := h.runs.ListPredictions(r.Context(), id, limit)
	if err != nil {
		h.storeError(w, r, "failed to list predictions", err)
		return
	}
	writeOK(w, r, "ok", preds)
}

func (h *ChurnHandler) storeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	code := StatusFor(err)
	if code == http.StatusNotFound {
		writeError(w, r, code, err.Error())
		return
	}
	h.log.Error(msg, "error", err)
	writeError(w, r, code, msg)
}

func (h *ChurnHandler) dataset(w http.ResponseWriter, r *http.Request) (*model.Dataset, bool) {
	ds, err := h.session.Dataset(h.DataPath)
	if err != nil {
		h.log.Warn("dataset unavailable", "path", h.DataPath, "error", err)
		writeError(w, r, StatusFor(err), err.Error())
		return nil, false
	}
	return ds, true
}

func (h *ChurnHandler) model(w http.ResponseWriter, r *http.Request) (*model.Dataset, *pipeline.TrainedModel, bool) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return nil, nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	m, err := h.session.Model(ctx, ds)
	if err != nil {
		writeError(w, r, StatusFor(err), err.Error())
		return nil, nil, false
	}
	return ds, m, true
}
