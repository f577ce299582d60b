package tally

import "math"

// Result holds the outcome of balancing a single track's tally.
type Result struct {
	ValidVotes int  `json:"valid_votes"`
	Difference int  `json:"difference"`
	IsBalanced bool `json:"is_balanced"`
}

// Evaluate checks whether a tally balances against the cast and invalid counts.
// A tally is balanced when the sum of per-candidate (or per-party) votes equals
// totalCast - invalid. A zero totalCast is never balanced, so an untouched form
// cannot be submitted.
func Evaluate(totalCast, invalid, tallySum int) Result {
	validVotes := totalCast - invalid
	difference := tallySum - validVotes

	return Result{
		ValidVotes: validVotes,
		Difference: difference,
		IsBalanced: totalCast > 0 && validVotes >= 0 && difference == 0,
	}
}

// SumTallies adds up a candidate/party vote map.
func SumTallies(votes map[string]int) int {
	sum := 0
	for _, v := range votes {
		sum += v
	}
	return sum
}

// Discrepancy describes a cross-track total comparison.
type Discrepancy struct {
	Difference int  `json:"difference"`
	Threshold  int  `json:"threshold"`
	Flagged    bool `json:"flagged"`
}

// CrossCheck compares the total cast votes of the two election tracks.
// The tolerance is 2% of registered voters, floored at 5 votes. A flagged
// discrepancy is advisory only and never blocks submission.
func CrossCheck(trackATotal, trackBTotal, registeredVoters int) Discrepancy {
	threshold := int(math.Round(float64(registeredVoters) * 0.02))
	if threshold < 5 {
		threshold = 5
	}

	diff := trackATotal - trackBTotal
	if diff < 0 {
		diff = -diff
	}

	return Discrepancy{
		Difference: diff,
		Threshold:  threshold,
		Flagged:    diff > threshold,
	}
}
