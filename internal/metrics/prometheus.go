// Package metrics 提供请求生命周期指标采集、统计和输出功能
package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	// 默认的Prometheus指标前缀
	defaultMetricPrefix = "storefront"
)

// PrometheusExporter 提供将请求指标导出为Prometheus文本格式的功能
type PrometheusExporter struct {
	// 指标收集器引用
	metrics *Metrics

	// 指标前缀
	prefix string

	// 来源名称，用于标签（store或catalogapi）
	source string

	// 上次导出时间
	lastExportTime time.Time

	// 互斥锁
	mu sync.Mutex
}

// NewPrometheusExporter 创建一个新的Prometheus导出器
func NewPrometheusExporter(metrics *Metrics, source string) *PrometheusExporter {
	return &PrometheusExporter{
		metrics:        metrics,
		prefix:         defaultMetricPrefix,
		source:         source,
		lastExportTime: time.Now(),
	}
}

// SetPrefix 设置指标前缀
func (p *PrometheusExporter) SetPrefix(prefix string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefix = prefix
}

// LastExportTime 返回上次导出时间
func (p *PrometheusExporter) LastExportTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastExportTime
}

// Export 导出Prometheus格式的指标
func (p *PrometheusExporter) Export() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	// 获取指标快照
	snapshot := p.metrics.GetSnapshot()
	if snapshot == nil {
		return ""
	}

	var buf bytes.Buffer
	p.lastExportTime = time.Now()

	// 按集合输出计数器，同一指标的样本放在一起
	type series struct {
		name, help, kind string
		value            func(CollectionSnapshot) string
	}
	all := []series{
		{"requests_total", "Total number of issued fetch requests", "counter",
			func(c CollectionSnapshot) string { return fmt.Sprintf("%d", c.Requests) }},
		{"successes_total", "Total number of successful settlements", "counter",
			func(c CollectionSnapshot) string { return fmt.Sprintf("%d", c.Successes) }},
		{"failures_total", "Total number of failed settlements", "counter",
			func(c CollectionSnapshot) string { return fmt.Sprintf("%d", c.Failures) }},
		{"discarded_total", "Total number of settlements discarded as stale", "counter",
			func(c CollectionSnapshot) string { return fmt.Sprintf("%d", c.Discarded) }},
		{"in_flight", "Number of requests not yet settled", "gauge",
			func(c CollectionSnapshot) string { return fmt.Sprintf("%d", c.InFlight) }},
	}
	for _, s := range all {
		if len(snapshot.Collections) == 0 {
			break
		}
		metricName := fmt.Sprintf("%s_%s", p.prefix, s.name)
		fmt.Fprintf(&buf, "# HELP %s %s\n", metricName, s.help)
		fmt.Fprintf(&buf, "# TYPE %s %s\n", metricName, s.kind)
		for _, c := range snapshot.Collections {
			fmt.Fprintf(&buf, "%s{source=\"%s\",collection=\"%s\"} %s\n", metricName, p.source, c.Name, s.value(c))
		}
		buf.WriteByte('\n')
	}

	// 添加缓存指标
	p.addCounter(&buf, "cache_hits_total", "Total number of response cache hits", snapshot.CacheHits)
	p.addCounter(&buf, "cache_misses_total", "Total number of response cache misses", snapshot.CacheMisses)
	p.addGauge(&buf, "cache_hit_ratio", "Response cache hit ratio", snapshot.HitRatio)

	// 添加直方图数据
	if snapshot.LatencyHistogram != nil {
		p.addHistogram(&buf, "fetch_latency_ns", "Fetch latency histogram in nanoseconds", snapshot.LatencyHistogram)
	}

	return buf.String()
}

// addCounter 添加计数器类型指标
func (p *PrometheusExporter) addCounter(buf *bytes.Buffer, name, help string, value uint64) {
	metricName := fmt.Sprintf("%s_%s", p.prefix, name)
	fmt.Fprintf(buf, "# HELP %s %s\n", metricName, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", metricName)
	fmt.Fprintf(buf, "%s{source=\"%s\"} %d\n\n", metricName, p.source, value)
}

// addGauge 添加仪表类型指标
func (p *PrometheusExporter) addGauge(buf *bytes.Buffer, name, help string, value float64) {
	metricName := fmt.Sprintf("%s_%s", p.prefix, name)
	fmt.Fprintf(buf, "# HELP %s %s\n", metricName, help)
	fmt.Fprintf(buf, "# TYPE %s gauge\n", metricName)
	fmt.Fprintf(buf, "%s{source=\"%s\"} %g\n\n", metricName, p.source, value)
}

// addHistogram 添加直方图类型指标
func (p *PrometheusExporter) addHistogram(buf *bytes.Buffer, name, help string, histogram *HistogramSnapshot) {
	metricName := fmt.Sprintf("%s_%s", p.prefix, name)
	fmt.Fprintf(buf, "# HELP %s %s\n", metricName, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", metricName)

	// 添加桶
	cumulativeCount := uint64(0)
	for i, count := range histogram.BucketCounts {
		cumulativeCount += count
		bucketBound := histogram.BucketBounds[i]
		fmt.Fprintf(buf, "%s_bucket{source=\"%s\",le=\"%d\"} %d\n",
			metricName, p.source, bucketBound, cumulativeCount)
	}

	// 添加+Inf桶
	fmt.Fprintf(buf, "%s_bucket{source=\"%s\",le=\"+Inf\"} %d\n",
		metricName, p.source, histogram.Count)

	// 添加总和和计数
	fmt.Fprintf(buf, "%s_sum{source=\"%s\"} %d\n", metricName, p.source, histogram.Sum)
	fmt.Fprintf(buf, "%s_count{source=\"%s\"} %d\n\n", metricName, p.source, histogram.Count)
}

// ServeHTTP 实现http.Handler接口，用于提供Prometheus指标端点
func (p *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = w.Write([]byte(p.Export()))
}

// ExposePrometheusMetrics 导出Prometheus格式的指标
// 这是一个便捷方法，用于直接获取Prometheus格式的指标字符串
func ExposePrometheusMetrics(metrics *Metrics, source string) string {
	return NewPrometheusExporter(metrics, source).Export()
}
