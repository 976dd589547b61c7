package domain

// FusionParams holds the heuristic constants of the fusion engine.
type FusionParams struct {
	// Behavioral sub-weights for the video score.
	EyeContactWeight float64 `mapstructure:"eye_contact_weight" json:"eye_contact_weight"`
	MotorWeight      float64 `mapstructure:"motor_weight" json:"motor_weight"`

	// Questionnaire normalization and moderate-band sensitivity boost.
	QuestionnaireMax int     `mapstructure:"questionnaire_max" json:"questionnaire_max"`
	BoostLower       float64 `mapstructure:"boost_lower" json:"boost_lower"`
	BoostUpper       float64 `mapstructure:"boost_upper" json:"boost_upper"`
	BoostFactor      float64 `mapstructure:"boost_factor" json:"boost_factor"`

	// Rule-based weights with the strong-vision reweighting.
	RuleVideoWeight         float64 `mapstructure:"rule_video_weight" json:"rule_video_weight"`
	RuleQuestionnaireWeight float64 `mapstructure:"rule_questionnaire_weight" json:"rule_questionnaire_weight"`
	RulePhysiologicalWeight float64 `mapstructure:"rule_physiological_weight" json:"rule_physiological_weight"`
	ReweightTrigger         float64 `mapstructure:"reweight_trigger" json:"reweight_trigger"`
	ReweightShift           float64 `mapstructure:"reweight_shift" json:"reweight_shift"`

	// Hybrid weights.
	HybridMLWeight            float64 `mapstructure:"hybrid_ml_weight" json:"hybrid_ml_weight"`
	HybridVideoWeight         float64 `mapstructure:"hybrid_video_weight" json:"hybrid_video_weight"`
	HybridQuestionnaireWeight float64 `mapstructure:"hybrid_questionnaire_weight" json:"hybrid_questionnaire_weight"`
	HybridPhysiologicalWeight float64 `mapstructure:"hybrid_physiological_weight" json:"hybrid_physiological_weight"`

	// Dissonance thresholds.
	RuleHighDissonance     float64 `mapstructure:"rule_high_dissonance" json:"rule_high_dissonance"`
	RuleMediumDissonance   float64 `mapstructure:"rule_medium_dissonance" json:"rule_medium_dissonance"`
	HybridHighMLDiff       float64 `mapstructure:"hybrid_high_ml_diff" json:"hybrid_high_ml_diff"`
	HybridHighDissonance   float64 `mapstructure:"hybrid_high_dissonance" json:"hybrid_high_dissonance"`
	HybridMediumMLDiff     float64 `mapstructure:"hybrid_medium_ml_diff" json:"hybrid_medium_ml_diff"`
	HybridMediumDissonance float64 `mapstructure:"hybrid_medium_dissonance" json:"hybrid_medium_dissonance"`
	DampingPrior           float64 `mapstructure:"damping_prior" json:"damping_prior"`

	// Interpretation cut points on the 0-1 scale.
	HighRiskThreshold     float64 `mapstructure:"high_risk_threshold" json:"high_risk_threshold"`
	ModerateRiskThreshold float64 `mapstructure:"moderate_risk_threshold" json:"moderate_risk_threshold"`
}

// DefaultFusionParams returns the calibrated fusion constants.
func DefaultFusionParams() FusionParams {
	return FusionParams{
		EyeContactWeight: 0.45,
		MotorWeight:      0.55,

		QuestionnaireMax: 20,
		BoostLower:       0.4,
		BoostUpper:       0.8,
		BoostFactor:      1.1,

		RuleVideoWeight:         0.50,
		RuleQuestionnaireWeight: 0.40,
		RulePhysiologicalWeight: 0.10,
		ReweightTrigger:         0.80,
		ReweightShift:           0.10,

		HybridMLWeight:            0.50,
		HybridVideoWeight:         0.30,
		HybridQuestionnaireWeight: 0.15,
		HybridPhysiologicalWeight: 0.05,

		RuleHighDissonance:     0.25,
		RuleMediumDissonance:   0.5,
		HybridHighMLDiff:       0.15,
		HybridHighDissonance:   0.25,
		HybridMediumMLDiff:     0.3,
		HybridMediumDissonance: 0.4,
		DampingPrior:           0.5,

		HighRiskThreshold:     0.7,
		ModerateRiskThreshold: 0.4,
	}
}

// TrendParams holds the constants of the trend engine.
type TrendParams struct {
	SmoothingWindow     int     `mapstructure:"smoothing_window" json:"smoothing_window"`
	Horizon             int     `mapstructure:"horizon" json:"horizon"`
	Dampening           float64 `mapstructure:"dampening" json:"dampening"`
	AcceleratedSlope    float64 `mapstructure:"accelerated_slope" json:"accelerated_slope"`
	SteadySlope         float64 `mapstructure:"steady_slope" json:"steady_slope"`
	MinConfidence       float64 `mapstructure:"min_confidence" json:"min_confidence"`
	MaxConfidence       float64 `mapstructure:"max_confidence" json:"max_confidence"`
	InitialConfidence   float64 `mapstructure:"initial_confidence" json:"initial_confidence"`
	EfficacyLowerBound  float64 `mapstructure:"efficacy_lower_bound" json:"efficacy_lower_bound"`
	EfficacyUpperBound  float64 `mapstructure:"efficacy_upper_bound" json:"efficacy_upper_bound"`
	MonitorDeltaTrigger float64 `mapstructure:"monitor_delta_trigger" json:"monitor_delta_trigger"`
}

// DefaultTrendParams returns the calibrated trend, efficacy and monitor constants.
func DefaultTrendParams() TrendParams {
	return TrendParams{
		SmoothingWindow:     3,
		Horizon:             4,
		Dampening:           0.9,
		AcceleratedSlope:    0.02,
		SteadySlope:         0.01,
		MinConfidence:       0.4,
		MaxConfidence:       0.95,
		InitialConfidence:   0.5,
		EfficacyLowerBound:  0.8,
		EfficacyUpperBound:  1.2,
		MonitorDeltaTrigger: 5,
	}
}
