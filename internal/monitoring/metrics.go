package monitoring

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds application counters. Everything is safe for concurrent use.
type Metrics struct {
	RequestCount int64
	ErrorCount   int64
	CacheHits    int64
	CacheMisses  int64

	LeadsProcessed int64
	LeadsScored    int64

	StartTime time.Time

	// Per-status and per-API tracking
	RequestCountByStatus map[int]int64
	statusMutex          sync.RWMutex

	ExternalAPIRequests   map[string]int64
	ExternalAPIErrorCount map[string]int64
	externalAPIMutex      sync.RWMutex

	RateLimitBlocks        int64
	RateLimitRedisErrors   int64
	RateLimitFallbackCount int64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:             time.Now(),
		RequestCountByStatus:  make(map[int]int64),
		ExternalAPIRequests:   make(map[string]int64),
		ExternalAPIErrorCount: make(map[string]int64),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

// IncrementLeadsProcessed increments the processed-lead count
func (m *Metrics) IncrementLeadsProcessed() {
	atomic.AddInt64(&m.LeadsProcessed, 1)
}

// AddLeadsScored adds to the scored-lead count
func (m *Metrics) AddLeadsScored(n int) {
	atomic.AddInt64(&m.LeadsScored, int64(n))
}

// IncrementRateLimitBlock increments the rate limit block count
func (m *Metrics) IncrementRateLimitBlock() {
	atomic.AddInt64(&m.RateLimitBlocks, 1)
}

// IncrementRateLimitRedisError increments the Redis rate limit error count
func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedisErrors, 1)
}

// IncrementRateLimitFallback increments the in-memory fallback count
func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.RateLimitFallbackCount, 1)
}

// RecordStatus records a response status code
func (m *Metrics) RecordStatus(status int) {
	m.statusMutex.Lock()
	m.RequestCountByStatus[status]++
	m.statusMutex.Unlock()
}

// RecordExternalAPICall records an outbound call against the named API.
func (m *Metrics) RecordExternalAPICall(apiName string, success bool) {
	m.externalAPIMutex.Lock()
	m.ExternalAPIRequests[apiName]++
	if !success {
		m.ExternalAPIErrorCount[apiName]++
	}
	m.externalAPIMutex.Unlock()
}

// GetStats returns a snapshot of all counters.
func (m *Metrics) GetStats() map[string]interface{} {
	m.statusMutex.RLock()
	byStatus := make(map[int]int64, len(m.RequestCountByStatus))
	for status, count := range m.RequestCountByStatus {
		byStatus[status] = count
	}
	m.statusMutex.RUnlock()

	m.externalAPIMutex.RLock()
	apiRequests := make(map[string]int64, len(m.ExternalAPIRequests))
	for name, count := range m.ExternalAPIRequests {
		apiRequests[name] = count
	}
	apiErrors := make(map[string]int64, len(m.ExternalAPIErrorCount))
	for name, count := range m.ExternalAPIErrorCount {
		apiErrors[name] = count
	}
	m.externalAPIMutex.RUnlock()

	return map[string]interface{}{
		"request_count":             atomic.LoadInt64(&m.RequestCount),
		"error_count":               atomic.LoadInt64(&m.ErrorCount),
		"cache_hits":                atomic.LoadInt64(&m.CacheHits),
		"cache_misses":              atomic.LoadInt64(&m.CacheMisses),
		"leads_processed":           atomic.LoadInt64(&m.LeadsProcessed),
		"leads_scored":              atomic.LoadInt64(&m.LeadsScored),
		"requests_by_status":        byStatus,
		"external_api_requests":     apiRequests,
		"external_api_errors":       apiErrors,
		"rate_limit_blocks":         atomic.LoadInt64(&m.RateLimitBlocks),
		"rate_limit_redis_errors":   atomic.LoadInt64(&m.RateLimitRedisErrors),
		"rate_limit_fallback_count": atomic.LoadInt64(&m.RateLimitFallbackCount),
		"uptime_seconds":            time.Since(m.StartTime).Seconds(),
	}
}
