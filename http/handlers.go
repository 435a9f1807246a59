package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"healthrisk/db"
	"healthrisk/disease"
	"healthrisk/ml"
	"healthrisk/monitoring"
	"healthrisk/predict"
	"healthrisk/registry"
)

const (
	msgModelUnavailable = "Models not loaded properly. Please check the Models directory."
	msgInferenceError   = "Error during prediction: "
)

// Predictor 预测分发接口
type Predictor interface {
	Predict(ctx context.Context, d disease.Disease, features []float64) (disease.Outcome, error)
}

// ModelStatus 模型注册表状态接口
type ModelStatus interface {
	Get(d disease.Disease) (ml.Classifier, bool)
	Status() []registry.LoadRecord
}

// LoadHistory 模型加载审计日志接口
type LoadHistory interface {
	QueryModelLoads(disease string, limit int) ([]db.ModelLoad, error)
}

// API 聚合处理器依赖
type API struct {
	predictor      Predictor
	models         ModelStatus
	history        LoadHistory
	metrics        *monitoring.MetricsCollector
	logger         *zap.Logger
	allowedOrigins []string
}

// APIOptions API依赖
type APIOptions struct {
	Predictor      Predictor
	Models         ModelStatus
	History        LoadHistory
	Metrics        *monitoring.MetricsCollector
	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewAPI 创建API
func NewAPI(opts APIOptions) *API {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		predictor:      opts.Predictor,
		models:         opts.Models,
		history:        opts.History,
		metrics:        opts.Metrics,
		logger:         logger,
		allowedOrigins: opts.AllowedOrigins,
	}
}

// RegisterHandlers 注册所有处理器
func RegisterHandlers(mux *http.ServeMux, api *API) {
	mux.HandleFunc("GET /api/health", api.handleHealth)
	mux.HandleFunc("GET /api/diseases", api.handleDiseases)
	mux.HandleFunc("GET /api/diseases/{disease}/schema", api.handleSchema)
	mux.HandleFunc("POST /api/predict/{disease}", api.handlePredict)
	mux.HandleFunc("GET /api/models", api.handleModels)
	mux.HandleFunc("GET /api/models/history", api.handleModelHistory)
	mux.HandleFunc("GET /api/metrics", api.handleMetrics)
	mux.HandleFunc("GET /api/ws/predict", api.handlePredictSocket)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded := 0
	for _, d := range disease.All() {
		if _, ok := a.models.Get(d); ok {
			loaded++
		}
	}
	status := "ok"
	if loaded < len(disease.All()) {
		status = "degraded"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        status,
		"models_loaded": loaded,
	})
}

type pageView struct {
	Disease   disease.Disease `json:"disease"`
	Title     string          `json:"title"`
	Subtitle  string          `json:"subtitle"`
	Tip       string          `json:"tip"`
	Fields    int             `json:"fields"`
	Available bool            `json:"available"`
}

func (a *API) handleDiseases(w http.ResponseWriter, r *http.Request) {
	out := make([]pageView, 0, len(disease.All()))
	for _, d := range disease.All() {
		p := pageFor(d)
		_, ok := a.models.Get(d)
		out = append(out, pageView{
			Disease:   d,
			Title:     p.Title,
			Subtitle:  p.Subtitle,
			Tip:       p.Tip,
			Fields:    d.Schema().Len(),
			Available: ok,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (a *API) handleSchema(w http.ResponseWriter, r *http.Request) {
	d, err := disease.Parse(r.PathValue("disease"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, schemaFor(d))
}

// predictRequest 预测请求，features 与 fields 二选一
type predictRequest struct {
	Features []float64         `json:"features"`
	Fields   map[string]float64 `json:"fields"`
}

type predictResponse struct {
	disease.Outcome
	Title string `json:"title"`
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, status, err := a.predict(r.Context(), r.PathValue("disease"), req)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// predict 解析、校验并分发一次预测，返回HTTP状态码
func (a *API) predict(ctx context.Context, name string, req predictRequest) (predictResponse, int, error) {
	d, err := disease.Parse(name)
	if err != nil {
		return predictResponse{}, http.StatusNotFound, err
	}

	features, err := resolveFeatures(d, req)
	if err != nil {
		return predictResponse{}, http.StatusBadRequest, err
	}

	outcome, err := a.predictor.Predict(ctx, d, features)
	switch {
	case err == nil:
		return predictResponse{Outcome: outcome, Title: pageFor(d).Title}, http.StatusOK, nil
	case errors.Is(err, predict.ErrModelUnavailable):
		return predictResponse{}, http.StatusServiceUnavailable, errors.New(msgModelUnavailable)
	case predict.IsInferenceError(err):
		a.logger.Warn("prediction failed", zap.String("disease", d.String()), zap.Error(err))
		var ie *predict.InferenceError
		errors.As(err, &ie)
		return predictResponse{}, http.StatusInternalServerError, fmt.Errorf("%s%v", msgInferenceError, ie.Cause)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return predictResponse{}, http.StatusGatewayTimeout, errors.New("request timeout")
	default:
		a.logger.Error("prediction failed", zap.String("disease", d.String()), zap.Error(err))
		return predictResponse{}, http.StatusInternalServerError, errors.New("internal server error")
	}
}

// resolveFeatures 按表单控件约束校验输入
func resolveFeatures(d disease.Disease, req predictRequest) ([]float64, error) {
	schema := d.Schema()
	var features []float64
	switch {
	case req.Features != nil && req.Fields != nil:
		return nil, errors.New("provide either features or fields, not both")
	case req.Fields != nil:
		vec, err := schema.Vector(req.Fields)
		if err != nil {
			return nil, err
		}
		features = vec
	case req.Features != nil:
		features = req.Features
	default:
		return nil, fmt.Errorf("features are required: %d values ordered as the %s schema", schema.Len(), d)
	}

	if err := schema.Validate(features); err != nil {
		return nil, err
	}
	return features, nil
}

func (a *API) handleModels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.models.Status())
}

func (a *API) handleModelHistory(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusNotFound, "model load history is not enabled")
		return
	}

	name := r.URL.Query().Get("disease")
	if name != "" {
		d, err := disease.Parse(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		name = d.String()
	}

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	loads, err := a.history.QueryModelLoads(name, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"disease": name,
		"data":    loads,
	})
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if a.metrics == nil {
		writeError(w, http.StatusNotFound, "metrics are not enabled")
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(a.metrics.ExportPrometheus()))
}

// respondJSON 统一JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
