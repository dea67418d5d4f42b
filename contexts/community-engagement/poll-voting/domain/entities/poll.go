package entities

import (
	"strings"
	"time"
)

// MaxOptions is the number of option slots a poll row carries.
const MaxOptions = 4

// MinOptions is the number of populated slots a poll needs to accept votes.
const MinOptions = 2

type Poll struct {
	PollID     string
	OwnerID    string
	Question   string
	Options    [MaxOptions]string
	VoteCounts [MaxOptions]int64
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OptionResult is one populated option with its counter and display share.
type OptionResult struct {
	Option     int
	Text       string
	Votes      int64
	Percentage int
}

// IsPopulated reports whether the 1-based option index maps to a slot with text.
func (p Poll) IsPopulated(option int) bool {
	if option < 1 || option > MaxOptions {
		return false
	}
	return strings.TrimSpace(p.Options[option-1]) != ""
}

func (p Poll) PopulatedCount() int {
	count := 0
	for option := 1; option <= MaxOptions; option++ {
		if p.IsPopulated(option) {
			count++
		}
	}
	return count
}

// TotalVotes sums counters of populated slots only.
func (p Poll) TotalVotes() int64 {
	var total int64
	for option := 1; option <= MaxOptions; option++ {
		if p.IsPopulated(option) {
			total += p.VoteCounts[option-1]
		}
	}
	return total
}

// Results returns populated options in slot order. Each percentage is rounded
// half-up independently, so the shares are not forced to sum to 100.
func (p Poll) Results() []OptionResult {
	total := p.TotalVotes()
	items := make([]OptionResult, 0, MaxOptions)
	for option := 1; option <= MaxOptions; option++ {
		if !p.IsPopulated(option) {
			continue
		}
		votes := p.VoteCounts[option-1]
		items = append(items, OptionResult{
			Option:     option,
			Text:       p.Options[option-1],
			Votes:      votes,
			Percentage: Percentage(votes, total),
		})
	}
	return items
}

// Percentage computes round(votes / total * 100) with half-up rounding in
// integer arithmetic. A zero total yields zero.
func Percentage(votes int64, total int64) int {
	if total <= 0 || votes <= 0 {
		return 0
	}
	return int((votes*200 + total) / (2 * total))
}

// NormalizeOptions trims option texts and packs them into slots 1..n. The
// returned count includes non-empty options that did not fit.
func NormalizeOptions(options []string) ([MaxOptions]string, int) {
	var slots [MaxOptions]string
	count := 0
	for _, option := range options {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		if count < MaxOptions {
			slots[count] = option
		}
		count++
	}
	return slots, count
}
