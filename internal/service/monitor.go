package service

import (
	"github.com/tarang-screening-server/internal/domain"
)

// CompareLatest reports the change between the two most recent sessions of a
// chronological series. A swing larger than trigger points in either
// direction is flagged; regressions also alert the clinician.
func CompareLatest(history domain.ScoreSeries, trigger float64) domain.MonitorReport {
	if len(history) < 2 {
		return domain.MonitorReport{
			Status:  domain.MONITOR_BASELINE,
			Message: "More data needed for trend analysis.",
		}
	}

	diff := history[len(history)-1].RiskScore - history[len(history)-2].RiskScore

	status := domain.MONITOR_STABLE
	switch {
	case diff > trigger:
		status = domain.MONITOR_IMPROVEMENT
	case diff < -trigger:
		status = domain.MONITOR_REGRESSION
	}

	return domain.MonitorReport{
		Status:         status,
		Variance:       round(diff, 2),
		AlertClinician: status == domain.MONITOR_REGRESSION,
	}
}
