package app

import (
	"testing"
	"time"
)

func steppingClock() func() time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestLeaderboardRanksByPointsThenEarliest(t *testing.T) {
	board := NewLeaderboardHub(steppingClock())
	board.Apply("bob", 50)
	board.Apply("alice", 50)
	board.Apply("carol", 80)

	lb := board.Snapshot()
	if len(lb.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %+v", lb.Entries)
	}
	// bob reached 50 before alice
	want := []string{"carol", "bob", "alice"}
	for i, entry := range lb.Entries {
		if entry.UserID != want[i] || entry.Rank != i+1 {
			t.Fatalf("entry %d: expected %s ranked %d, got %+v", i, want[i], i+1, entry)
		}
	}
}

func TestLeaderboardSeedOnce(t *testing.T) {
	board := NewLeaderboardHub(steppingClock())
	if board.Loaded() {
		t.Fatalf("new board must not be loaded")
	}

	board.Apply("alice", 10)
	board.Seed(map[string]int{"alice": 30, "bob": 5})
	board.Seed(map[string]int{"alice": 1000})

	if !board.Loaded() {
		t.Fatalf("expected board loaded after seed")
	}
	lb := board.Snapshot()
	if len(lb.Entries) != 2 || lb.Entries[0].Points != 40 || lb.Entries[1].Points != 5 {
		t.Fatalf("expected alice=40 bob=5, got %+v", lb.Entries)
	}
}

func TestLeaderboardSlowSubscriberKeepsLatest(t *testing.T) {
	board := NewLeaderboardHub(steppingClock())
	ch, cancel := board.Subscribe()
	defer cancel()

	for i := 0; i < 20; i++ {
		board.Apply("alice", 1)
	}

	var last int
	for {
		select {
		case lb := <-ch:
			if len(lb.Entries) > 0 {
				last = lb.Entries[0].Points
			}
			continue
		default:
		}
		break
	}
	if last != 20 {
		t.Fatalf("expected latest snapshot with 20 points, got %d", last)
	}
}

func TestLeaderboardCancelClosesChannel(t *testing.T) {
	board := NewLeaderboardHub(nil)
	ch, cancel := board.Subscribe()
	<-ch
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after cancel")
	}
	board.Apply("alice", 1) // no subscribers left
}
