package scan

// Aggregate merges the local heuristic verdict with every provider result
// into one final verdict under a strict severity ordering:
//
//	malicious > suspicious > clean > local fallback
//
// The rule is evaluated across ALL provider results, so the outcome does
// not depend on provider ordering or count. Results carrying an error or
// no record contribute nothing and fall through to the local verdict.
func Aggregate(local Verdict, providers []ProviderResult) Verdict {
	for _, severity := range []Verdict{VerdictMalicious, VerdictSuspicious, VerdictClean} {
		for _, pr := range providers {
			if pr.Error != "" || !pr.Found {
				continue
			}
			if pr.Verdict == severity {
				return severity
			}
		}
	}
	return local
}
