package service

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/tarang-screening-server/internal/domain"
)

// FusionEngine combines normalized modality scores into a single risk assessment.
// It holds no mutable state and is safe for concurrent use.
type FusionEngine struct {
	logger     *logrus.Logger
	params     domain.FusionParams
	normalizer *SignalNormalizer
}

// NewFusionEngine creates a fusion engine with the given constants
func NewFusionEngine(logger *logrus.Logger, params domain.FusionParams) *FusionEngine {
	return &FusionEngine{
		logger:     logger,
		params:     params,
		normalizer: NewSignalNormalizer(params),
	}
}

// Normalizer returns the signal normalizer sharing this engine's constants.
func (e *FusionEngine) Normalizer() *SignalNormalizer {
	return e.normalizer
}

// Assess normalizes raw input and fuses it. An unusable ML probability is never
// an error: fusion takes the rule-based path and the outcome records why.
func (e *FusionEngine) Assess(in domain.FusionInput) (*domain.RiskAssessment, domain.Outcome[float64]) {
	signals, ml := e.normalizer.Normalize(in)
	if ml.Status == domain.OUTCOME_DEGRADED {
		e.logger.WithField("reason", ml.Reason).Warn("Ignoring classifier probability, using rule-based fusion")
	}
	return e.Fuse(signals), ml
}

// Fuse combines normalized signals. The hybrid path is used when an ML
// probability is present, the rule-based path otherwise.
func (e *FusionEngine) Fuse(s domain.NormalizedSignals) *domain.RiskAssessment {
	e.logger.WithFields(logrus.Fields{
		"video":         s.Video,
		"questionnaire": s.Questionnaire,
		"physiological": s.Physiological,
		"ml_present":    s.ML != nil,
	}).Debug("Fusing modality signals")

	dissonance := math.Abs(s.Video - s.Questionnaire)

	var (
		risk   float64
		method domain.FusionMethod
		level  domain.ConfidenceLevel
		label  string
	)
	if s.ML != nil {
		risk = e.hybridRisk(s)
		method = domain.ML_HYBRID_FUSION
		level, label = e.hybridConfidence(*s.ML, s.Video, dissonance)
	} else {
		risk = e.ruleBasedRisk(s)
		method = domain.RULE_BASED_FUSION
		level, label = e.ruleBasedConfidence(dissonance)
	}

	if level == domain.LOW {
		risk = e.dampen(risk)
	}
	risk = clamp01(risk)

	assessment := &domain.RiskAssessment{
		RiskScore:        round(risk*100, 2),
		Confidence:       label,
		ConfidenceLevel:  level,
		DissonanceFactor: round(dissonance, 3),
		Breakdown: domain.Breakdown{
			Behavioral:    round(s.Video*100, 2),
			Questionnaire: round(s.Questionnaire*100, 2),
			Physiological: round(s.Physiological*100, 2),
		},
		Interpretation: e.interpret(risk),
		FusionMethod:   method,
	}
	if s.ML != nil {
		ml := round(*s.ML*100, 2)
		assessment.Breakdown.MLModel = &ml
	}

	e.logger.WithFields(logrus.Fields(assessment.LogFields())).Debug("Completed risk fusion")

	return assessment
}

// ruleBasedRisk applies the static weights, shifting weight from the
// questionnaire to vision when the vision signal is strongly positive.
func (e *FusionEngine) ruleBasedRisk(s domain.NormalizedSignals) float64 {
	video := e.params.RuleVideoWeight
	questionnaire := e.params.RuleQuestionnaireWeight
	if s.Video > e.params.ReweightTrigger {
		video += e.params.ReweightShift
		questionnaire -= e.params.ReweightShift
	}

	return s.Video*video +
		s.Questionnaire*questionnaire +
		s.Physiological*e.params.RulePhysiologicalWeight
}

func (e *FusionEngine) hybridRisk(s domain.NormalizedSignals) float64 {
	return *s.ML*e.params.HybridMLWeight +
		s.Video*e.params.HybridVideoWeight +
		s.Questionnaire*e.params.HybridQuestionnaireWeight +
		s.Physiological*e.params.HybridPhysiologicalWeight
}

func (e *FusionEngine) ruleBasedConfidence(dissonance float64) (domain.ConfidenceLevel, string) {
	switch {
	case dissonance < e.params.RuleHighDissonance:
		return domain.HIGH, "High (Signals Aligned)"
	case dissonance < e.params.RuleMediumDissonance:
		return domain.MEDIUM, "Medium (Partial Dissonance)"
	default:
		return domain.LOW, "Low (High Dissonance)"
	}
}

func (e *FusionEngine) hybridConfidence(ml, video, dissonance float64) (domain.ConfidenceLevel, string) {
	mlVisionDiff := math.Abs(ml - video)
	switch {
	case mlVisionDiff < e.params.HybridHighMLDiff && dissonance < e.params.HybridHighDissonance:
		return domain.HIGH, "High (ML + Vision Aligned)"
	case mlVisionDiff < e.params.HybridMediumMLDiff && dissonance < e.params.HybridMediumDissonance:
		return domain.MEDIUM, "Medium (Partial Alignment)"
	default:
		return domain.LOW, "Low (Signal Dissonance)"
	}
}

// dampen pulls a score on contradictory input halfway toward the population prior.
func (e *FusionEngine) dampen(risk float64) float64 {
	return (risk + e.params.DampingPrior) / 2
}

func (e *FusionEngine) interpret(risk float64) domain.Interpretation {
	switch {
	case risk > e.params.HighRiskThreshold:
		return domain.HIGH_RISK
	case risk > e.params.ModerateRiskThreshold:
		return domain.MODERATE_RISK
	default:
		return domain.LOW_RISK
	}
}
