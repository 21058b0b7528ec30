package tally

import (
	"testing"

	"github.com/stretchr/testify/assert"

	regmodels "asamblea/internal/registry/models"
	votingmodels "asamblea/internal/voting/models"
)

func regSet(regs ...regmodels.Registry) regmodels.RegistrySet {
	set := make(regmodels.RegistrySet, len(regs))
	for _, r := range regs {
		set[r.ID] = r
	}
	return set
}

func TestAttendanceQuorum(t *testing.T) {
	t.Run("claimed coefficient over total", func(t *testing.T) {
		set := regSet(
			regmodels.Registry{ID: "A", Coefficient: 40, Claimed: true},
			regmodels.Registry{ID: "B", Coefficient: 35},
			regmodels.Registry{ID: "C", Coefficient: 25},
		)
		assert.InDelta(t, 40, AttendanceQuorum(set), 1e-9)

		c := set["C"]
		c.Claimed = true
		set["C"] = c
		assert.InDelta(t, 65, AttendanceQuorum(set), 1e-9)
	})

	t.Run("zero when nothing claimed", func(t *testing.T) {
		set := regSet(regmodels.Registry{ID: "A", Coefficient: 40})
		assert.Zero(t, AttendanceQuorum(set))
	})

	t.Run("zero when total coefficient is zero", func(t *testing.T) {
		set := regSet(regmodels.Registry{ID: "A", Coefficient: 0, Claimed: true})
		assert.Zero(t, AttendanceQuorum(set))
		assert.Zero(t, AttendanceQuorum(regmodels.RegistrySet{}))
	})

	t.Run("deleted registries leave the ledger", func(t *testing.T) {
		set := regSet(
			regmodels.Registry{ID: "A", Coefficient: 50, Claimed: true},
			regmodels.Registry{ID: "B", Coefficient: 50, IsDeleted: true},
		)
		assert.InDelta(t, 100, AttendanceQuorum(set), 1e-9)
	})
}

func TestTallyUniqueQuestion(t *testing.T) {
	// A(10) and B(20) vote Sí, C(5) votes No; the entity totals 100.
	set := regSet(
		regmodels.Registry{ID: "A", Coefficient: 10, Claimed: true},
		regmodels.Registry{ID: "B", Coefficient: 20, Claimed: true},
		regmodels.Registry{ID: "C", Coefficient: 5, Claimed: true},
		regmodels.Registry{ID: "D", Coefficient: 65},
	)
	q := votingmodels.Question{
		ID:      "q1",
		Type:    votingmodels.TypeUnique,
		Options: []string{"Sí", "No"},
		Status:  votingmodels.StatusLive,
		Answers: map[regmodels.RegistryID]votingmodels.Answer{
			"A": {Option: "Sí"},
			"B": {Option: "Sí"},
			"C": {Option: "No"},
		},
	}

	res := Tally(q, set)
	assert.Len(t, res.Options, 2)

	si := res.Options[0]
	assert.Equal(t, "Sí", si.Option)
	assert.Equal(t, 2, si.VotesCount)
	assert.InDelta(t, 30, si.VotedCoefficient, 1e-9)
	assert.InDelta(t, 30, si.DisplayPercent, 1e-9, "display percent runs against the whole entity")

	no := res.Options[1]
	assert.Equal(t, 1, no.VotesCount)
	assert.InDelta(t, 5, no.VotedCoefficient, 1e-9)
	assert.InDelta(t, 5, no.DisplayPercent, 1e-9)

	assert.InDelta(t, 35, res.ParticipationQuorum, 1e-9)
}

func TestTallyMultipleCountsEachOption(t *testing.T) {
	set := regSet(
		regmodels.Registry{ID: "A", Coefficient: 30},
		regmodels.Registry{ID: "B", Coefficient: 20},
		regmodels.Registry{ID: "C", Coefficient: 50},
	)
	q := votingmodels.Question{
		ID:      "q2",
		Type:    votingmodels.TypeMultiple,
		Options: []string{"x", "y"},
		Status:  votingmodels.StatusFinished,
		Answers: map[regmodels.RegistryID]votingmodels.Answer{
			"A": {Options: []string{"x", "y"}},
			"B": {Options: []string{"y"}},
		},
	}

	res := Tally(q, set)
	assert.Equal(t, 1, res.Options[0].VotesCount)
	assert.InDelta(t, 30, res.Options[0].DisplayPercent, 1e-9)
	assert.Equal(t, 2, res.Options[1].VotesCount)
	assert.InDelta(t, 50, res.Options[1].DisplayPercent, 1e-9)
}

func TestTallyCanceledContributesNothing(t *testing.T) {
	set := regSet(regmodels.Registry{ID: "A", Coefficient: 100})
	q := votingmodels.Question{
		ID:      "q3",
		Type:    votingmodels.TypeUnique,
		Options: []string{"Sí", "No"},
		Status:  votingmodels.StatusCanceled,
		Answers: map[regmodels.RegistryID]votingmodels.Answer{"A": {Option: "Sí"}},
	}

	res := Tally(q, set)
	for _, opt := range res.Options {
		assert.Zero(t, opt.VotesCount)
		assert.Zero(t, opt.VotedCoefficient)
		assert.Zero(t, opt.DisplayPercent)
	}
	assert.Zero(t, res.ParticipationQuorum)
	assert.Len(t, q.Answers, 1, "answers are retained, just excluded")
}

func TestParticipationCountsVoteBlockedInDenominator(t *testing.T) {
	set := regSet(
		regmodels.Registry{ID: "A", Coefficient: 50},
		regmodels.Registry{ID: "B", Coefficient: 50, VoteBlocked: true},
	)
	q := votingmodels.Question{
		ID:      "q4",
		Type:    votingmodels.TypeOpen,
		Status:  votingmodels.StatusLive,
		Answers: map[regmodels.RegistryID]votingmodels.Answer{"A": {Text: "ok"}},
	}
	assert.InDelta(t, 50, ParticipationQuorum(q, set), 1e-9)
}

func TestTallyIgnoresAnswersFromDeletedRegistries(t *testing.T) {
	set := regSet(
		regmodels.Registry{ID: "A", Coefficient: 60},
		regmodels.Registry{ID: "B", Coefficient: 40, IsDeleted: true},
	)
	q := votingmodels.Question{
		ID:      "q5",
		Type:    votingmodels.TypeYesNo,
		Options: []string{"Sí", "No"},
		Status:  votingmodels.StatusLive,
		Answers: map[regmodels.RegistryID]votingmodels.Answer{
			"A": {Option: "Sí"},
			"B": {Option: "Sí"},
		},
	}
	res := Tally(q, set)
	assert.Equal(t, 1, res.Options[0].VotesCount)
	assert.InDelta(t, 100, res.Options[0].DisplayPercent, 1e-9)
}
