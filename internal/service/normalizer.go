package service

import (
	"fmt"
	"math"

	"github.com/tarang-screening-server/internal/domain"
)

// SignalNormalizer maps raw modality inputs onto a common [0,1] risk scale
// where 1.0 is maximum risk.
type SignalNormalizer struct {
	params domain.FusionParams
}

// NewSignalNormalizer creates a normalizer using the given fusion constants.
func NewSignalNormalizer(params domain.FusionParams) *SignalNormalizer {
	return &SignalNormalizer{params: params}
}

// VideoScore blends eye contact and motor coordination. Absent inputs are 0.0.
func (n *SignalNormalizer) VideoScore(m domain.ModalityMetrics) float64 {
	eye := clamp01(m.EyeContact)
	motor := clamp01(m.MotorCoordination)
	return clamp01(eye*n.params.EyeContactWeight + motor*n.params.MotorWeight)
}

// QuestionnaireScore clamps the raw total to [0, max], scales it to [0,1] and
// boosts the ambiguous moderate band.
func (n *SignalNormalizer) QuestionnaireScore(total int) float64 {
	max := n.params.QuestionnaireMax
	if max <= 0 {
		return 0
	}
	if total < 0 {
		total = 0
	}
	if total > max {
		total = max
	}

	q := float64(total) / float64(max)
	if q > n.params.BoostLower && q < n.params.BoostUpper {
		q = math.Min(q*n.params.BoostFactor, 1.0)
	}
	return q
}

// PhysiologicalScore passes the proxy ratio through, clamped to [0,1].
func (n *SignalNormalizer) PhysiologicalScore(p *domain.PhysiologicalProxy) float64 {
	if p == nil {
		return 0
	}
	return clamp01(p.AlphaThetaRatio)
}

// MLProbability accepts a classifier probability only when it lies in [0,1].
func (n *SignalNormalizer) MLProbability(p *float64) domain.Outcome[float64] {
	if p == nil {
		return domain.Unavailable(0.0)
	}
	v := *p
	if math.IsNaN(v) || v < 0 || v > 1 {
		return domain.Degraded(0.0, fmt.Sprintf("classifier probability %v outside [0,1]", v))
	}
	return domain.Ok(v)
}

// Normalize converts a full fusion input. The returned outcome reports how the
// ML probability was resolved; the signals carry it only when it is usable.
func (n *SignalNormalizer) Normalize(in domain.FusionInput) (domain.NormalizedSignals, domain.Outcome[float64]) {
	signals := domain.NormalizedSignals{
		Video:         n.VideoScore(in.VideoMetrics),
		Questionnaire: n.QuestionnaireScore(in.QuestionnaireScore),
		Physiological: n.PhysiologicalScore(in.EEGMock),
	}

	ml := n.MLProbability(in.MLProbability)
	if ml.IsOK() {
		p := ml.Value
		signals.ML = &p
	}
	return signals, ml
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
