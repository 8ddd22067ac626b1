// Package leaderboard ranks teams and serves cached standings per game.
package leaderboard

import (
	"cmp"
	"slices"
	"time"

	"github.com/playperu/qrhunt/internal/hunt"
)

// FinishedClue replaces the current clue of teams that reached an end node.
const FinishedClue = "Finished!"

// Snapshot is the progress of one team at a point in time.
type Snapshot struct {
	TeamID      string
	TeamName    string
	TeamLogoURL string
	NodesFound  int
	TotalPoints int
	FinishedAt  *time.Time
	FirstScanAt *time.Time
	LastScanAt  *time.Time
	CurrentNode string
}

func (s Snapshot) finished() bool { return s.FinishedAt != nil }

func (s Snapshot) elapsed() time.Duration {
	if s.FirstScanAt == nil || s.LastScanAt == nil {
		return 0
	}
	return s.LastScanAt.Sub(*s.FirstScanAt)
}

type Entry struct {
	Rank        int    `json:"rank"`
	TeamName    string `json:"teamName"`
	TeamLogoURL string `json:"teamLogoUrl"`
	NodesFound  int    `json:"nodesFound"`
	TotalPoints int    `json:"totalPoints"`
	IsFinished  bool   `json:"isFinished"`
	CurrentClue string `json:"currentClue"`
}

// Rank orders snapshots under mode and assigns dense 1-based ranks: teams
// equal on every ranking key share a rank and the next team gets rank+1.
// Teams sharing a rank are listed by name, then ID. Rank does not modify
// its input.
func Rank(teams []Snapshot, mode hunt.RankingMode) []Entry {
	sorted := slices.Clone(teams)
	byKey := compareFor(mode)
	slices.SortStableFunc(sorted, func(a, b Snapshot) int {
		if c := byKey(a, b); c != 0 {
			return c
		}
		return cmp.Or(cmp.Compare(a.TeamName, b.TeamName), cmp.Compare(a.TeamID, b.TeamID))
	})

	entries := make([]Entry, 0, len(sorted))
	rank := 0
	for i, s := range sorted {
		if i == 0 || byKey(sorted[i-1], s) != 0 {
			rank++
		}
		clue := s.CurrentNode
		if s.finished() {
			clue = FinishedClue
		}
		entries = append(entries, Entry{
			Rank:        rank,
			TeamName:    s.TeamName,
			TeamLogoURL: s.TeamLogoURL,
			NodesFound:  s.NodesFound,
			TotalPoints: s.TotalPoints,
			IsFinished:  s.finished(),
			CurrentClue: clue,
		})
	}
	return entries
}

func compareFor(mode hunt.RankingMode) func(a, b Snapshot) int {
	switch mode {
	case hunt.RankByNodes:
		return func(a, b Snapshot) int {
			return cmp.Or(
				cmp.Compare(b.NodesFound, a.NodesFound),
				compareFinish(a, b),
			)
		}
	case hunt.RankByTime:
		return compareTime
	default:
		return func(a, b Snapshot) int {
			return cmp.Or(
				cmp.Compare(b.TotalPoints, a.TotalPoints),
				compareFinish(a, b),
				cmp.Compare(b.NodesFound, a.NodesFound),
			)
		}
	}
}

// compareFinish puts earlier finishers first and unfinished teams last.
func compareFinish(a, b Snapshot) int {
	switch {
	case a.finished() && b.finished():
		return a.FinishedAt.Compare(*b.FinishedAt)
	case a.finished():
		return -1
	case b.finished():
		return 1
	}
	return 0
}

func compareTime(a, b Snapshot) int {
	switch {
	case a.finished() && b.finished():
		return cmp.Or(
			cmp.Compare(a.elapsed(), b.elapsed()),
			a.FinishedAt.Compare(*b.FinishedAt),
		)
	case a.finished():
		return -1
	case b.finished():
		return 1
	}
	return cmp.Compare(b.NodesFound, a.NodesFound)
}
