package storage

import "time"

// Coord is a persisted map position.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// PlayerRecord is the persisted progress for a single username. It survives
// disconnects; the registry restores it when the same username rejoins.
type PlayerRecord struct {
	Username  string         `json:"username"`
	Score     int            `json:"score"`
	Resources map[string]int `json:"resources"`
	Position  Coord          `json:"position"`
	LastSeen  time.Time      `json:"lastSeen"`
}

type LeaderboardEntry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type WorldCycle struct {
	Cycle     int   `json:"cycle"`
	Timestamp int64 `json:"timestamp"`
}

// Snapshot is the full persisted document: everything needed to restore the
// game across a process restart.
type Snapshot struct {
	Leaderboard []LeaderboardEntry      `json:"leaderboard"`
	Players     map[string]PlayerRecord `json:"players"`
	WorldCycle  WorldCycle              `json:"worldCycle"`
}

// DefaultSnapshot returns an empty snapshot suitable for a fresh world.
func DefaultSnapshot() *Snapshot {
	return &Snapshot{
		Leaderboard: []LeaderboardEntry{},
		Players:     map[string]PlayerRecord{},
	}
}

func (s *Snapshot) Validate() error {
	if s.Players == nil {
		s.Players = map[string]PlayerRecord{}
	}
	return nil
}
