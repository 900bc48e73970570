package enrichment

import (
	"kadrisk/internal/kad"
	"kadrisk/internal/outcome"
)

// RoleGroupOf folds a party role into the side of the dispute it stands on.
func RoleGroupOf(role kad.Role, found bool) RoleGroup {
	if !found {
		return OtherGroup
	}
	switch role {
	case kad.RoleDefendant:
		return DefendantLike
	case kad.RolePlaintiff:
		return PlaintiffLike
	default:
		return OtherGroup
	}
}

// ImpactOf says whether an outcome was good or bad for the target given the
// side it stood on. The confidence never exceeds the outcome's.
func ImpactOf(o outcome.Outcome, conf outcome.Confidence, group RoleGroup) (Impact, outcome.Confidence) {
	if group == OtherGroup || o == outcome.Unknown {
		return ImpactUnknown, outcome.Low
	}

	impact, ceiling := ImpactUnknown, outcome.Low
	switch {
	case o == outcome.Satisfied, o == outcome.PartiallySatisfied, o.IsBankruptcy():
		impact, ceiling = lossFor(group, DefendantLike), outcome.High
	case o == outcome.Denied:
		impact, ceiling = lossFor(group, PlaintiffLike), outcome.High
	case o == outcome.LeftWithoutReview, o == outcome.Returned:
		impact, ceiling = lossFor(group, PlaintiffLike), outcome.Medium
	case o == outcome.Terminated:
		if group == DefendantLike {
			impact, ceiling = Positive, outcome.Medium
		}
	}

	if impact == ImpactUnknown {
		return ImpactUnknown, outcome.Low
	}
	return impact, weaker(conf, ceiling)
}

// lossFor is Negative for the losing group and Positive for the other one.
func lossFor(group, loser RoleGroup) Impact {
	if group == loser {
		return Negative
	}
	return Positive
}

func weaker(a, b outcome.Confidence) outcome.Confidence {
	if a.Rank() > b.Rank() {
		return a
	}
	return b
}
