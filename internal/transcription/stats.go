package transcription

import (
	"sync"
	"time"
)

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	TotalRetries    uint64        `json:"total_retries"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

type clientStats struct {
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	totalRetries    uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

func (s *clientStats) incrementTotalRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRequests++
}

func (s *clientStats) incrementSuccessRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successRequests++
}

func (s *clientStats) incrementFailedRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedRequests++
}

func (s *clientStats) incrementTotalRetries() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRetries++
}

func (s *clientStats) updateAvgResponseTime(responseTime time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Simple moving average
	if s.avgResponseTime == 0 {
		s.avgResponseTime = responseTime
	} else {
		s.avgResponseTime = (s.avgResponseTime + responseTime) / 2
	}
}

func (s *clientStats) snapshot(active int) ClientStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	successRate := float64(0)
	if s.totalRequests > 0 {
		successRate = float64(s.successRequests) / float64(s.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   s.totalRequests,
		SuccessRequests: s.successRequests,
		FailedRequests:  s.failedRequests,
		SuccessRate:     successRate,
		TotalRetries:    s.totalRetries,
		AvgResponseTime: s.avgResponseTime,
		ActiveRequests:  active,
	}
}
