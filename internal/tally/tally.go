// Package tally computes attendance quorum and per-option vote tallies as
// pure functions over store snapshots. Nothing here mutates state or talks to
// a store, so export/report collaborators can reuse it offline.
package tally

import (
	regmodels "asamblea/internal/registry/models"
	votingmodels "asamblea/internal/voting/models"
)

// OptionResult is the aggregate for one option of a question.
type OptionResult struct {
	Option string
	// VotesCount is the number of registries whose answer matches the option.
	VotesCount int
	// VotedCoefficient is the summed coefficient of those registries.
	VotedCoefficient float64
	// DisplayPercent expresses VotedCoefficient against the total entity
	// coefficient — not against the voted coefficient. Partial participation
	// must never overstate a result, so callers must not re-normalize by the
	// voting population.
	DisplayPercent float64
}

// Result is the full tally of one question.
type Result struct {
	QuestionID          string
	Options             []OptionResult
	ParticipationQuorum float64
}

// AttendanceQuorum returns the coefficient-weighted attendance percentage:
// claimed coefficient over total coefficient. Deleted registries are out of
// the ledger entirely; a zero denominator yields 0.
func AttendanceQuorum(set regmodels.RegistrySet) float64 {
	var claimed, total float64
	for _, r := range set {
		if r.IsDeleted {
			continue
		}
		total += r.Coefficient
		if r.Claimed {
			claimed += r.Coefficient
		}
	}
	return percentage(claimed, total)
}

// Tally aggregates a question's vote ledger against the registry snapshot.
// A CANCELED question retains its answers but contributes nothing: every
// count comes back zero.
func Tally(q votingmodels.Question, set regmodels.RegistrySet) Result {
	res := Result{QuestionID: q.ID}
	total := totalCoefficient(set)

	canceled := q.Status == votingmodels.StatusCanceled

	for _, opt := range q.Options {
		or := OptionResult{Option: opt}
		if !canceled {
			for regID, ans := range q.Answers {
				r, ok := set[regID]
				if !ok || r.IsDeleted {
					continue
				}
				if ans.Matches(q.Type, opt) {
					or.VotesCount++
					or.VotedCoefficient += r.Coefficient
				}
			}
		}
		or.DisplayPercent = percentage(or.VotedCoefficient, total)
		res.Options = append(res.Options, or)
	}

	if !canceled {
		res.ParticipationQuorum = ParticipationQuorum(q, set)
	}
	return res
}

// ParticipationQuorum is the coefficient share of registries holding at least
// one answer, over all registries. Vote-blocked registries stay in the
// denominator; deleted ones are out of both sides.
func ParticipationQuorum(q votingmodels.Question, set regmodels.RegistrySet) float64 {
	if q.Status == votingmodels.StatusCanceled {
		return 0
	}
	var answered float64
	for regID := range q.Answers {
		if r, ok := set[regID]; ok && !r.IsDeleted {
			answered += r.Coefficient
		}
	}
	return percentage(answered, totalCoefficient(set))
}

func totalCoefficient(set regmodels.RegistrySet) float64 {
	var total float64
	for _, r := range set {
		if !r.IsDeleted {
			total += r.Coefficient
		}
	}
	return total
}

func percentage(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}
