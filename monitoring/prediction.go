package monitoring

import "time"

const (
	MetricPredictions       = "predictions_total"
	MetricPredictionErrors  = "prediction_errors_total"
	MetricPredictionLatency = "prediction_latency_ms"
)

// PredictionMetrics 预测业务指标
type PredictionMetrics struct {
	collector *MetricsCollector
}

// NewPredictionMetrics 创建预测指标，nil collector 时所有记录为空操作
func NewPredictionMetrics(collector *MetricsCollector) *PredictionMetrics {
	if collector != nil {
		collector.SetHelp(MetricPredictions, "Predictions served by disease and outcome")
		collector.SetHelp(MetricPredictionErrors, "Failed predictions by disease and error kind")
		collector.SetHelp(MetricPredictionLatency, "Classifier invocation latency in milliseconds")
	}
	return &PredictionMetrics{collector: collector}
}

// RecordOutcome 记录一次成功预测
func (pm *PredictionMetrics) RecordOutcome(disease, outcome string, elapsed time.Duration) {
	if pm == nil || pm.collector == nil {
		return
	}
	pm.collector.IncrCounter(MetricPredictions, 1, map[string]string{"disease": disease, "outcome": outcome})
	pm.collector.RecordHistogram(MetricPredictionLatency, float64(elapsed.Microseconds())/1000, map[string]string{"disease": disease})
}

// RecordError 记录一次失败预测
func (pm *PredictionMetrics) RecordError(disease, kind string) {
	if pm == nil || pm.collector == nil {
		return
	}
	pm.collector.IncrCounter(MetricPredictionErrors, 1, map[string]string{"disease": disease, "kind": kind})
}
