package game

import (
	"sort"
	"strings"

	"gridhunter/internal/protocol"
)

// BuildLeaderboard sorts entries descending by score. The sort is stable, so
// equal scores keep their input order.
func BuildLeaderboard(entries []protocol.LeaderboardEntry) []protocol.LeaderboardEntry {
	out := make([]protocol.LeaderboardEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// leaderboardLocked merges live player scores with persisted records of
// usernames that are not currently connected, so disconnected players keep
// their rank. The pre-sort order is alphabetical to keep ties deterministic.
func (w *World) leaderboardLocked() []protocol.LeaderboardEntry {
	byKey := make(map[string]protocol.LeaderboardEntry, len(w.records)+len(w.players))

	for key, rec := range w.records {
		username := rec.Username
		if username == "" {
			username = key
		}
		byKey[key] = protocol.LeaderboardEntry{Username: username, Score: rec.Score}
	}
	for _, ps := range w.players {
		byKey[strings.ToLower(ps.Username)] = protocol.LeaderboardEntry{
			Username: ps.Username,
			Score:    ps.Score,
		}
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]protocol.LeaderboardEntry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, byKey[key])
	}

	return BuildLeaderboard(entries)
}
