package submission

import (
	"encoding/json"
	"fmt"
	"time"

	"tally-agent/internal/tally"

	"github.com/google/uuid"
)

// VoteBatch identifies the set of ballot boxes a report covers. A mixed box
// merges several physical booths that were combined before counting.
type VoteBatch struct {
	ID         string   `json:"id"`
	IsMixedBox bool     `json:"is_mixed_box"`
	BoothIDs   []string `json:"booth_ids"`
}

// VoteTally is one candidate or party line in a track.
type VoteTally struct {
	ID    string `json:"id"`
	Votes int    `json:"votes"`
}

// TrackTally holds the counts for one election track. A track that was not
// counted is represented by a nil pointer and omitted from the payload
// entirely; a zero-valued track would be indistinguishable from "zero votes
// counted" downstream.
type TrackTally struct {
	TotalCastVotes      int         `json:"total_cast_votes"`
	InvalidVotes        int         `json:"invalid_votes"`
	Tallies             []VoteTally `json:"tallies"`
	MuchulkaImageBase64 string      `json:"muchulka_image_base64,omitempty"`
}

// VoteSubmission is the wire payload for one agent report. The batch id doubles
// as the idempotency key on transmission.
type VoteSubmission struct {
	ConstituencyID string      `json:"constituency_id"`
	VoteBatch      VoteBatch   `json:"vote_batch"`
	FPTP           *TrackTally `json:"fptp,omitempty"`
	PR             *TrackTally `json:"pr,omitempty"`
	DisputeNote    string      `json:"dispute_note,omitempty"`
	IsOffline      bool        `json:"is_offline"`
	SubmittedAt    time.Time   `json:"submitted_at"`
}

// Encode serializes the submission for the durable queue.
func (s *VoteSubmission) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode submission: %w", err)
	}
	return string(data), nil
}

// TrackEntry is the in-progress wizard state for one track. Votes maps a
// candidate or party id to its count.
type TrackEntry struct {
	TotalCast           int            `json:"total_cast"`
	Invalid             int            `json:"invalid"`
	Votes               map[string]int `json:"votes"`
	MuchulkaImageBase64 string         `json:"muchulka_image_base64,omitempty"`
}

// WizardState is the finalized entry state handed over by the UI.
type WizardState struct {
	ConstituencyID   string      `json:"constituency_id"`
	BoothIDs         []string    `json:"booth_ids"`
	IsMixedBox       bool        `json:"is_mixed_box"`
	RegisteredVoters int         `json:"registered_voters"`
	FPTP             *TrackEntry `json:"fptp,omitempty"`
	PR               *TrackEntry `json:"pr,omitempty"`
	DisputeNote      string      `json:"dispute_note,omitempty"`
}

// Build assembles the wire payload from finalized wizard state. Every present
// track must balance; the tally entry screen gates this upstream, so an
// unbalanced track here is a programming defect rather than user error. The
// online flag is snapshotted into the payload at build time and never
// re-derived.
func Build(state WizardState, online bool) (*VoteSubmission, error) {
	if state.ConstituencyID == "" {
		return nil, fmt.Errorf("constituency id is required")
	}
	if len(state.BoothIDs) == 0 {
		return nil, fmt.Errorf("at least one booth id is required")
	}
	if state.FPTP == nil && state.PR == nil {
		return nil, fmt.Errorf("no completed track to submit")
	}

	sub := &VoteSubmission{
		ConstituencyID: state.ConstituencyID,
		VoteBatch: VoteBatch{
			ID:         uuid.NewString(),
			IsMixedBox: state.IsMixedBox,
			BoothIDs:   state.BoothIDs,
		},
		DisputeNote: state.DisputeNote,
		IsOffline:   !online,
		SubmittedAt: time.Now().UTC(),
	}

	if state.FPTP != nil {
		track, err := buildTrack("fptp", state.FPTP)
		if err != nil {
			return nil, err
		}
		sub.FPTP = track
	}

	if state.PR != nil {
		track, err := buildTrack("pr", state.PR)
		if err != nil {
			return nil, err
		}
		sub.PR = track
	}

	return sub, nil
}

// CheckDiscrepancy compares the two tracks' totals when both are present.
// The result is advisory and never blocks submission.
func CheckDiscrepancy(state WizardState) *tally.Discrepancy {
	if state.FPTP == nil || state.PR == nil {
		return nil
	}
	d := tally.CrossCheck(state.FPTP.TotalCast, state.PR.TotalCast, state.RegisteredVoters)
	return &d
}

func buildTrack(name string, entry *TrackEntry) (*TrackTally, error) {
	result := tally.Evaluate(entry.TotalCast, entry.Invalid, tally.SumTallies(entry.Votes))
	if !result.IsBalanced {
		return nil, fmt.Errorf("%s track is not balanced (difference %d)", name, result.Difference)
	}

	tallies := make([]VoteTally, 0, len(entry.Votes))
	for id, votes := range entry.Votes {
		tallies = append(tallies, VoteTally{ID: id, Votes: votes})
	}

	return &TrackTally{
		TotalCastVotes:      entry.TotalCast,
		InvalidVotes:        entry.Invalid,
		Tallies:             tallies,
		MuchulkaImageBase64: entry.MuchulkaImageBase64,
	}, nil
}
