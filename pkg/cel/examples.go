package cel

// RuleExpressionExamples are sample custom signal rules over aggregated stats.
var RuleExpressionExamples = map[string]string{
	"many_cases":         `stats.cases_total > 50`,
	"mostly_defendant":   `stats.defendant_ratio >= 0.9`,
	"frequent_losses":    `stats.negative_window >= 5 && stats.cases_window > 0`,
	"huge_claim":         `stats.max_amount >= 100000000.0`,
	"poor_coverage":      `stats.unknown_ratio > 0.8`,
	"construction_heavy": `"construction_quality" in stats.categories && stats.categories["construction_quality"] >= 3`,
	"ok_run_only":        `status == "ok" && stats.cases_total > 0`,
}
