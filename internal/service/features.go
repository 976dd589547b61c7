package service

import (
	"fmt"
	"strings"

	"github.com/tarang-screening-server/internal/domain"
)

// Feature column names shared with the trained classifier artifact.
const (
	FeatureAge           = "age"
	FeatureGender        = "gender_encoded"
	FeatureJaundice      = "jaundice_encoded"
	FeatureFamilyHistory = "family_history_encoded"
	FeatureTotalScore    = "total_score"
)

const defaultAge = 5

// DefaultFeatureColumns is the column order used when a model artifact does not declare one.
var DefaultFeatureColumns = func() []string {
	cols := make([]string, 0, 15)
	for i := 1; i <= 10; i++ {
		cols = append(cols, itemColumn(i))
	}
	return append(cols, FeatureAge, FeatureGender, FeatureJaundice, FeatureFamilyHistory, FeatureTotalScore)
}()

func itemColumn(i int) string {
	return fmt.Sprintf("A%d_Score", i)
}

// BuildFeatures encodes an AQ-10 questionnaire as classifier features.
func BuildFeatures(r domain.AQ10Responses) domain.Features {
	f := make(domain.Features, len(DefaultFeatureColumns))

	total := 0
	for i, v := range r.Items {
		f[itemColumn(i+1)] = float64(v)
		total += v
	}

	age := r.Age
	if age <= 0 {
		age = defaultAge
	}
	f[FeatureAge] = age
	f[FeatureGender] = boolFeature(r.Gender == "" || strings.EqualFold(r.Gender, "m"))
	f[FeatureJaundice] = boolFeature(r.Jaundice)
	f[FeatureFamilyHistory] = boolFeature(r.FamilyHistory)
	f[FeatureTotalScore] = float64(total)

	return f
}

// ExpandScore estimates itemized responses from a questionnaire total by
// marking the first min(total, 10) items. Demographics take their defaults.
func ExpandScore(total int) domain.AQ10Responses {
	r := domain.AQ10Responses{Age: defaultAge, Gender: "m"}
	remaining := total
	if remaining > len(r.Items) {
		remaining = len(r.Items)
	}
	for i := 0; i < remaining; i++ {
		r.Items[i] = 1
	}
	return r
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
