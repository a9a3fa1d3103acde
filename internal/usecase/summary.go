package usecase

import "github.com/example/cropmanager/internal/knowledge"

// Summary represents aggregated dashboard insights.
type Summary struct {
	Inventory    map[string]int `json:"inventory"`
	TotalScans   int            `json:"total_scans"`
	HealthyScans int            `json:"healthy_scans"`
	HealthyRate  float64        `json:"healthy_rate"`
}

// Summary aggregates inventory counts and scan outcomes for the dashboard.
func (s *ScanService) Summary(username string) (*Summary, error) {
	stats, err := s.store.Stats(username)
	if err != nil {
		return nil, err
	}

	history, err := s.store.History(username)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Inventory:  stats,
		TotalScans: len(history),
	}
	for _, entry := range history {
		if entry.Status == knowledge.StatusHealthy {
			summary.HealthyScans++
		}
	}
	if summary.TotalScans > 0 {
		summary.HealthyRate = float64(summary.HealthyScans) / float64(summary.TotalScans)
	}
	return summary, nil
}
