package entities

import "time"

// Vote is the ledger row for one (user, poll) pair. It is mutated in place on
// a vote change, never appended.
type Vote struct {
	PollID         string
	UserID         string
	SelectedOption int
	CreatedAt      time.Time
	VotedAt        time.Time
}

type VoteOutcome string

const (
	VoteOutcomeFirstVote VoteOutcome = "first_vote"
	VoteOutcomeChanged   VoteOutcome = "changed"
	VoteOutcomeUnchanged VoteOutcome = "unchanged"
)

// OptionTally compares one slot's counter with the ledger rows selecting it.
type OptionTally struct {
	Option      int
	Counter     int64
	LedgerVotes int64
}

type TallyReport struct {
	PollID       string
	CounterTotal int64
	LedgerTotal  int64
	Options      []OptionTally
}

func (r TallyReport) Consistent() bool {
	if r.CounterTotal != r.LedgerTotal {
		return false
	}
	for _, item := range r.Options {
		if item.Counter != item.LedgerVotes {
			return false
		}
	}
	return true
}
