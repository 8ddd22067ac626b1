package leaderboard

import (
	"slices"
	"testing"
	"time"

	"github.com/playperu/qrhunt/internal/hunt"
)

var base = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func at(min int) *time.Time {
	t := base.Add(time.Duration(min) * time.Minute)
	return &t
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.TeamName
	}
	return out
}

func ranks(entries []Entry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.Rank
	}
	return out
}

func TestRankByPoints(t *testing.T) {
	teams := []Snapshot{
		{TeamID: "1", TeamName: "Condor", TotalPoints: 300, NodesFound: 3, CurrentNode: "Plaza"},
		{TeamID: "2", TeamName: "Alpaca", TotalPoints: 300, NodesFound: 3, CurrentNode: "Plaza"},
		{TeamID: "3", TeamName: "Puma", TotalPoints: 300, NodesFound: 4, FinishedAt: at(50)},
		{TeamID: "4", TeamName: "Vicuna", TotalPoints: 100, NodesFound: 1},
		{TeamID: "5", TeamName: "Llama", TotalPoints: 300, NodesFound: 4, FinishedAt: at(40)},
	}

	got := Rank(teams, hunt.RankByPoints)

	wantNames := []string{"Llama", "Puma", "Alpaca", "Condor", "Vicuna"}
	if !slices.Equal(names(got), wantNames) {
		t.Errorf("order = %v, want %v", names(got), wantNames)
	}
	// Dense: Alpaca and Condor tie on every key, Vicuna follows with rank 4.
	wantRanks := []int{1, 2, 3, 3, 4}
	if !slices.Equal(ranks(got), wantRanks) {
		t.Errorf("ranks = %v, want %v", ranks(got), wantRanks)
	}
	if got[0].CurrentClue != FinishedClue || !got[0].IsFinished {
		t.Errorf("finished team clue = %q", got[0].CurrentClue)
	}
	if got[2].CurrentClue != "Plaza" {
		t.Errorf("current clue = %q, want Plaza", got[2].CurrentClue)
	}
}

func TestRankByNodes(t *testing.T) {
	teams := []Snapshot{
		{TeamID: "1", TeamName: "A", NodesFound: 2, TotalPoints: 900},
		{TeamID: "2", TeamName: "B", NodesFound: 5, TotalPoints: 100},
		{TeamID: "3", TeamName: "C", NodesFound: 5, TotalPoints: 50, FinishedAt: at(30)},
	}

	got := Rank(teams, hunt.RankByNodes)
	if want := []string{"C", "B", "A"}; !slices.Equal(names(got), want) {
		t.Errorf("order = %v, want %v", names(got), want)
	}
	if want := []int{1, 2, 3}; !slices.Equal(ranks(got), want) {
		t.Errorf("ranks = %v, want %v", ranks(got), want)
	}
}

func TestRankByTime(t *testing.T) {
	teams := []Snapshot{
		{TeamID: "1", TeamName: "Slow", NodesFound: 4, FirstScanAt: at(0), LastScanAt: at(90), FinishedAt: at(90)},
		{TeamID: "2", TeamName: "Fast", NodesFound: 4, FirstScanAt: at(20), LastScanAt: at(60), FinishedAt: at(60)},
		{TeamID: "3", TeamName: "Lost", NodesFound: 1, FirstScanAt: at(0), LastScanAt: at(0)},
		{TeamID: "4", TeamName: "Busy", NodesFound: 3, FirstScanAt: at(0), LastScanAt: at(5)},
	}

	got := Rank(teams, hunt.RankByTime)
	if want := []string{"Fast", "Slow", "Busy", "Lost"}; !slices.Equal(names(got), want) {
		t.Errorf("order = %v, want %v", names(got), want)
	}
	if want := []int{1, 2, 3, 4}; !slices.Equal(ranks(got), want) {
		t.Errorf("ranks = %v, want %v", ranks(got), want)
	}
}

func TestRankIsPureAndStable(t *testing.T) {
	teams := []Snapshot{
		{TeamID: "b", TeamName: "Same", TotalPoints: 10},
		{TeamID: "a", TeamName: "Same", TotalPoints: 10},
		{TeamID: "c", TeamName: "Other", TotalPoints: 20},
	}
	input := slices.Clone(teams)

	first := Rank(teams, hunt.RankByPoints)
	for range 20 {
		if again := Rank(teams, hunt.RankByPoints); !slices.Equal(again, first) {
			t.Fatalf("rank changed between calls: %v vs %v", again, first)
		}
	}
	if !slices.EqualFunc(teams, input, func(a, b Snapshot) bool { return a.TeamID == b.TeamID }) {
		t.Error("Rank reordered its input")
	}
	if want := []int{1, 2, 2}; !slices.Equal(ranks(first), want) {
		t.Errorf("ranks = %v, want %v", ranks(first), want)
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Rank(nil, hunt.RankByPoints); len(got) != 0 {
		t.Errorf("expected empty board, got %v", got)
	}
}
