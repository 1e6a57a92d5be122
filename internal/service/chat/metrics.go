package chat

import (
	"sync"
	"time"
)

// Metrics счётчики использования за время жизни процесса.
// Хранится только в памяти и сбрасывается перезапуском.
type Metrics struct {
	mu sync.RWMutex

	totalRequests  int64
	failedRequests int64
	totalTokens    int64
	totalCostUSD   float64
	totalLatency   time.Duration
	compactions    int64
	startedAt      time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

func (m *Metrics) recordSuccess(tokens int, costUSD float64, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRequests++
	m.totalTokens += int64(tokens)
	m.totalCostUSD += costUSD
	m.totalLatency += latency
}

func (m *Metrics) recordFailure(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRequests++
	m.failedRequests++
	m.totalLatency += latency
}

func (m *Metrics) recordCompaction() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compactions++
}

// GetStats возвращает снимок счётчиков для отдачи наружу.
func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	avgLatencyMs := int64(0)
	if m.totalRequests > 0 {
		avgLatencyMs = m.totalLatency.Milliseconds() / m.totalRequests
	}

	return map[string]interface{}{
		"total_requests":  m.totalRequests,
		"failed_requests": m.failedRequests,
		"total_tokens":    m.totalTokens,
		"total_cost_usd":  m.totalCostUSD,
		"avg_latency_ms":  avgLatencyMs,
		"compactions":     m.compactions,
		"uptime_seconds":  int64(time.Since(m.startedAt).Seconds()),
	}
}
