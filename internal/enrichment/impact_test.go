package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kadrisk/internal/kad"
	"kadrisk/internal/outcome"
)

func TestRoleGroupOf(t *testing.T) {
	assert.Equal(t, DefendantLike, RoleGroupOf(kad.RoleDefendant, true))
	assert.Equal(t, PlaintiffLike, RoleGroupOf(kad.RolePlaintiff, true))
	assert.Equal(t, OtherGroup, RoleGroupOf(kad.RoleThirdParty, true))
	assert.Equal(t, OtherGroup, RoleGroupOf(kad.RoleOther, true))
	assert.Equal(t, OtherGroup, RoleGroupOf(kad.RoleDefendant, false))
}

func TestImpactOf(t *testing.T) {
	tests := []struct {
		outcome    outcome.Outcome
		confidence outcome.Confidence
		group      RoleGroup
		impact     Impact
		impactConf outcome.Confidence
	}{
		{outcome.Satisfied, outcome.High, DefendantLike, Negative, outcome.High},
		{outcome.Satisfied, outcome.High, PlaintiffLike, Positive, outcome.High},
		{outcome.Satisfied, outcome.Medium, DefendantLike, Negative, outcome.Medium},
		{outcome.PartiallySatisfied, outcome.High, DefendantLike, Negative, outcome.High},
		{outcome.BankruptDeclared, outcome.High, DefendantLike, Negative, outcome.High},
		{outcome.BankruptcyObservation, outcome.High, PlaintiffLike, Positive, outcome.High},
		{outcome.Denied, outcome.High, DefendantLike, Positive, outcome.High},
		{outcome.Denied, outcome.High, PlaintiffLike, Negative, outcome.High},
		{outcome.LeftWithoutReview, outcome.High, DefendantLike, Positive, outcome.Medium},
		{outcome.LeftWithoutReview, outcome.High, PlaintiffLike, Negative, outcome.Medium},
		{outcome.Returned, outcome.Medium, PlaintiffLike, Negative, outcome.Medium},
		{outcome.Terminated, outcome.High, DefendantLike, Positive, outcome.Medium},
		{outcome.Terminated, outcome.High, PlaintiffLike, ImpactUnknown, outcome.Low},
		{outcome.SettlementApproved, outcome.High, DefendantLike, ImpactUnknown, outcome.Low},
		{outcome.AppealCanceled, outcome.High, PlaintiffLike, ImpactUnknown, outcome.Low},
		{outcome.Satisfied, outcome.High, OtherGroup, ImpactUnknown, outcome.Low},
		{outcome.Unknown, outcome.Low, DefendantLike, ImpactUnknown, outcome.Low},
	}

	for _, tt := range tests {
		t.Run(string(tt.outcome)+"/"+string(tt.group), func(t *testing.T) {
			impact, conf := ImpactOf(tt.outcome, tt.confidence, tt.group)
			assert.Equal(t, tt.impact, impact)
			assert.Equal(t, tt.impactConf, conf)
		})
	}
}

func TestIsBankruptcyCase(t *testing.T) {
	assert.True(t, EnrichedCase{CaseType: "Б"}.IsBankruptcyCase())
	assert.True(t, EnrichedCase{CaseType: "о несостоятельности (банкротстве)"}.IsBankruptcyCase())
	assert.False(t, EnrichedCase{CaseType: "Э"}.IsBankruptcyCase())
}
