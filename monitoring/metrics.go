// Package monitoring 提供进程内指标收集与导出
package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType 指标类型
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// Metric 指标（单条时间序列的当前值）
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Count     int64             `json:"count,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Help      string            `json:"help,omitempty"`
}

// MetricsCollector 指标收集器
type MetricsCollector struct {
	metrics     map[string]*Metric
	help        map[string]string
	metricsLock sync.RWMutex

	startTime time.Time
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics:   make(map[string]*Metric),
		help:      make(map[string]string),
		startTime: time.Now(),
	}
}

// SetHelp 设置指标说明
func (mc *MetricsCollector) SetHelp(name, help string) {
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()
	mc.help[name] = help
}

// IncrCounter 增加计数器
func (mc *MetricsCollector) IncrCounter(name string, value float64, labels map[string]string) {
	mc.update(name, MetricTypeCounter, labels, func(m *Metric) {
		m.Value += value
		m.Count++
	})
}

// SetGauge 设置仪表
func (mc *MetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	mc.update(name, MetricTypeGauge, labels, func(m *Metric) {
		m.Value = value
	})
}

// RecordHistogram 记录观测值，导出 _sum 与 _count
func (mc *MetricsCollector) RecordHistogram(name string, value float64, labels map[string]string) {
	mc.update(name, MetricTypeHistogram, labels, func(m *Metric) {
		m.Value += value
		m.Count++
	})
}

func (mc *MetricsCollector) update(name string, typ MetricType, labels map[string]string, fn func(*Metric)) {
	key := seriesKey(name, labels)

	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()

	m, ok := mc.metrics[key]
	if !ok {
		m = &Metric{Name: name, Type: typ, Labels: copyLabels(labels)}
		mc.metrics[key] = m
	}
	fn(m)
	m.Timestamp = time.Now()
}

// GetMetric 获取指定名称的全部序列
func (mc *MetricsCollector) GetMetric(name string) ([]Metric, error) {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	result := make([]Metric, 0)
	for _, m := range mc.metrics {
		if m.Name == name {
			metricCopy := *m
			metricCopy.Labels = copyLabels(m.Labels)
			metricCopy.Help = mc.help[name]
			result = append(result, metricCopy)
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("metric %s not found", name)
	}
	sort.Slice(result, func(i, j int) bool {
		return seriesKey(result[i].Name, result[i].Labels) < seriesKey(result[j].Name, result[j].Labels)
	})
	return result, nil
}

// Value 返回单条序列的当前值
func (mc *MetricsCollector) Value(name string, labels map[string]string) float64 {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	if m, ok := mc.metrics[seriesKey(name, labels)]; ok {
		return m.Value
	}
	return 0
}

// ExportPrometheus 导出Prometheus文本格式
func (mc *MetricsCollector) ExportPrometheus() string {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	keys := make([]string, 0, len(mc.metrics))
	for key := range mc.metrics {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	described := make(map[string]bool)
	for _, key := range keys {
		m := mc.metrics[key]
		if !described[m.Name] {
			help := mc.help[m.Name]
			if help == "" {
				help = fmt.Sprintf("Metric %s", m.Name)
			}
			typ := m.Type
			if typ == MetricTypeHistogram {
				typ = "summary"
			}
			fmt.Fprintf(&b, "# HELP %s %s\n", m.Name, help)
			fmt.Fprintf(&b, "# TYPE %s %s\n", m.Name, typ)
			described[m.Name] = true
		}

		labels := formatLabels(m.Labels)
		if m.Type == MetricTypeHistogram {
			fmt.Fprintf(&b, "%s_sum%s %g\n", m.Name, labels, m.Value)
			fmt.Fprintf(&b, "%s_count%s %d\n", m.Name, labels, m.Count)
			continue
		}
		fmt.Fprintf(&b, "%s%s %g\n", m.Name, labels, m.Value)
	}
	return b.String()
}

// StartSystemMetrics 周期性收集运行时指标，ctx 取消后停止
func (mc *MetricsCollector) StartSystemMetrics(ctx context.Context, interval time.Duration) {
	mc.collectSystemMetrics()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				mc.collectSystemMetrics()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// collectSystemMetrics 收集内存与协程指标
func (mc *MetricsCollector) collectSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	mc.SetGauge("memory_heap_alloc_bytes", float64(m.HeapAlloc), nil)
	mc.SetGauge("memory_gc_count", float64(m.NumGC), nil)
	mc.SetGauge("system_goroutines", float64(runtime.NumGoroutine()), nil)
	mc.SetGauge("uptime_seconds", mc.GetUptime().Seconds(), nil)
}

// GetUptime 获取运行时间
func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

func seriesKey(name string, labels map[string]string) string {
	return name + formatLabels(labels)
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf(`%s="%s"`, k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func copyLabels(labels map[string]string) map[string]string {
	if len(labels) == 0 {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}
