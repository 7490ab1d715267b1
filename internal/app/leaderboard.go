package app

import (
	"sort"
	"sync"
	"time"

	"quiz-engine-service/internal/domain"
)

// standing is a user's accumulated score across recorded attempts.
type standing struct {
	userID      string
	points      int
	lastUpdated time.Time
}

// LeaderboardHub keeps per-user totals in memory and fans out snapshots to subscribers.
type LeaderboardHub struct {
	now         func() time.Time
	mu          sync.RWMutex
	loaded      bool
	standings   map[string]*standing
	subscribers map[chan domain.Leaderboard]struct{}
}

// NewLeaderboardHub returns an empty hub; now may be nil for wall-clock time.
func NewLeaderboardHub(now func() time.Time) *LeaderboardHub {
	if now == nil {
		now = time.Now
	}
	return &LeaderboardHub{
		now:         now,
		standings:   make(map[string]*standing),
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Loaded reports whether persisted totals were merged in.
func (b *LeaderboardHub) Loaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

// Seed merges persisted totals once. Later calls are ignored.
func (b *LeaderboardHub) Seed(totals map[string]int) domain.Leaderboard {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loaded {
		return b.snapshotLocked()
	}
	b.loaded = true
	now := b.now()
	for userID, points := range totals {
		if st, ok := b.standings[userID]; ok {
			st.points += points
			continue
		}
		b.standings[userID] = &standing{userID: userID, points: points, lastUpdated: now}
	}
	return b.broadcastLocked()
}

// Apply adds a graded score to a user's total and broadcasts the new board.
func (b *LeaderboardHub) Apply(userID string, score int) domain.Leaderboard {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	st, ok := b.standings[userID]
	if !ok {
		st = &standing{userID: userID}
		b.standings[userID] = st
	}
	st.points += score
	st.lastUpdated = now
	return b.broadcastLocked()
}

// Snapshot returns the current ranked board.
func (b *LeaderboardHub) Snapshot() domain.Leaderboard {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

// Subscribe returns a channel of board updates, primed with the current snapshot.
// The caller must invoke cancel to release the subscription.
func (b *LeaderboardHub) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	initial := b.snapshotLocked()
	b.mu.Unlock()

	ch <- initial

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *LeaderboardHub) broadcastLocked() domain.Leaderboard {
	lb := b.snapshotLocked()
	for ch := range b.subscribers {
		select {
		case ch <- lb:
		default:
			// slow subscriber: drop the oldest pending snapshot
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
	return lb
}

func (b *LeaderboardHub) snapshotLocked() domain.Leaderboard {
	ordered := make([]*standing, 0, len(b.standings))
	for _, st := range b.standings {
		ordered = append(ordered, st)
	}

	// points desc, then whoever reached the total first, then user id
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].points != ordered[j].points {
			return ordered[i].points > ordered[j].points
		}
		if !ordered[i].lastUpdated.Equal(ordered[j].lastUpdated) {
			return ordered[i].lastUpdated.Before(ordered[j].lastUpdated)
		}
		return ordered[i].userID < ordered[j].userID
	})

	entries := make([]domain.LeaderboardEntry, 0, len(ordered))
	for i, st := range ordered {
		entries = append(entries, domain.LeaderboardEntry{
			UserID: st.userID,
			Points: st.points,
			Rank:   i + 1,
		})
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: b.now()}
}
