// Package diagnosis decides which vaccine orders may be administered after a
// pre-vaccination check.
package diagnosis

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
)

// IsEligible reports whether a dose with this outcome may be given today.
func IsEligible(o model.Outcome) bool {
	return o == model.OutcomeNormal || o == model.OutcomeCaution
}

// Eligible returns the order ids cleared for administration, in input order.
func Eligible(results []model.DiagnosisResult) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(results))
	for _, r := range results {
		if IsEligible(r.Outcome) {
			ids = append(ids, r.VaccineOrderID)
		}
	}
	return ids
}

func EligibleSet(results []model.DiagnosisResult) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(results))
	for _, id := range Eligible(results) {
		set[id] = struct{}{}
	}
	return set
}
