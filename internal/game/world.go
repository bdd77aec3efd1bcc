package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"gridhunter/internal/announce"
	"gridhunter/internal/protocol"
	"gridhunter/internal/storage"
)

const maxUsernameLength = 30

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.\- ]+$`)

// Store persists and restores the game snapshot.
type Store interface {
	Load() *storage.Snapshot
	Save(*storage.Snapshot) error
}

// Publisher fans game events out to connected sessions.
type Publisher interface {
	Broadcast(event string, payload any) error
	ToPlayer(sessionID string, event string, payload any) error
}

// Config tunes the world. Zero values for optional fields fall back to
// defaults in NewWorld.
type Config struct {
	Width           int
	Height          int
	ResourceDensity float64
	ObstacleDensity float64

	// DiscoveryRadius is the Chebyshev radius revealed around a player
	// after each move.
	DiscoveryRadius int

	// AllowDiagonal selects the movement policy: orthogonal-only steps
	// when false, any of the eight surrounding tiles when true.
	AllowDiagonal bool

	// AnnounceDelay is how long after depletion the regeneration runs;
	// RestoreDelay is how long players stay off-grid afterwards.
	AnnounceDelay time.Duration
	RestoreDelay  time.Duration

	// MaxSearchRadius bounds the ring search in FindValidPosition.
	MaxSearchRadius int
}

func (c Config) withDefaults() Config {
	if c.DiscoveryRadius == 0 {
		c.DiscoveryRadius = 2
	}
	if c.AnnounceDelay == 0 {
		c.AnnounceDelay = 3 * time.Second
	}
	if c.RestoreDelay == 0 {
		c.RestoreDelay = 3 * time.Second
	}
	if c.MaxSearchRadius == 0 {
		c.MaxSearchRadius = 10
	}
	return c
}

type lifecycleState int

const (
	stateActive lifecycleState = iota
	stateAnnouncing
	stateRegenerating
)

// EvictionReason says why an active session was forced out, so the session
// can word its parting notice accordingly.
type EvictionReason int

const (
	EvictedTakeover EvictionReason = iota
	EvictedAccountDeleted
	EvictedReset
)

// PlayerState holds all mutable state for an active player session.
type PlayerState struct {
	SessionID string
	Username  string
	Origin    string
	Pos       Position
	Score     int
	Resources map[ResourceKind]int

	LastActivity time.Time

	// prevPos remembers where the player stood before a regeneration
	// displaced them off-grid.
	prevPos Position

	// done is closed to signal the session goroutine to exit when the
	// world evicts the session.
	done        chan struct{}
	evictReason EvictionReason
}

// Done returns the channel closed when this session is evicted.
func (p *PlayerState) Done() <-chan struct{} {
	return p.done
}

// EvictReason reports why the session was evicted. Only meaningful after
// Done() is closed.
func (p *PlayerState) EvictReason() EvictionReason {
	return p.evictReason
}

// Kick records the reason and closes the done channel. Safe to call multiple
// times; the first reason wins.
func (p *PlayerState) Kick(reason EvictionReason) {
	select {
	case <-p.done:
	default:
		p.evictReason = reason
		close(p.done)
	}
}

// World is the single source of truth for all mutable game state: the tile
// grid, active players, persisted player records, and the world cycle. Every
// handler runs to completion under the lock, so no two handlers interleave
// mid-mutation.
type World struct {
	mu sync.Mutex

	cfg   Config
	rng   *rand.Rand
	gen   *Generator
	store Store
	pub   Publisher
	ann   *announce.Announcer
	now   func() time.Time

	tiles   [][]Tile
	players map[string]*PlayerState        // session id -> state
	active  map[string]string              // lowercase username -> session id
	records map[string]storage.PlayerRecord // lowercase username -> persisted progress

	cycle   int
	cycleAt time.Time
	state   lifecycleState
	tasks   taskQueue
}

type WorldOpt func(*World)

// WithRand injects the random source used for map generation and spawn
// placement. Tests pass a seeded source for determinism.
func WithRand(rng *rand.Rand) WorldOpt {
	return func(w *World) {
		w.rng = rng
	}
}

// WithClock injects the time source so tests can advance virtual time.
func WithClock(now func() time.Time) WorldOpt {
	return func(w *World) {
		w.now = now
	}
}

func NewWorld(cfg Config, store Store, pub Publisher, ann *announce.Announcer, opts ...WorldOpt) (*World, error) {
	w := &World{
		cfg:     cfg.withDefaults(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		store:   store,
		pub:     pub,
		ann:     ann,
		now:     time.Now,
		players: make(map[string]*PlayerState),
		active:  make(map[string]string),
		records: make(map[string]storage.PlayerRecord),
	}

	for _, opt := range opts {
		opt(w)
	}

	gen, err := NewGenerator(w.cfg.Width, w.cfg.Height, w.cfg.ResourceDensity, w.cfg.ObstacleDensity, w.rng)
	if err != nil {
		return nil, fmt.Errorf("creating map generator: %w", err)
	}
	w.gen = gen
	w.tiles = gen.Generate()

	snap := store.Load()
	for key, rec := range snap.Players {
		w.records[strings.ToLower(key)] = rec
	}
	w.cycle = snap.WorldCycle.Cycle
	w.cycleAt = time.UnixMilli(snap.WorldCycle.Timestamp)
	if snap.WorldCycle.Timestamp == 0 {
		w.cycleAt = w.now()
	}

	return w, nil
}

// Join registers a session under a username. The returned PlayerState exposes
// the eviction channel; restored reports whether persisted progress existed.
func (w *World) Join(sessionID, username, origin string) (ps *PlayerState, restored bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := validateUsername(username); err != nil {
		return nil, false, err
	}

	key := strings.ToLower(username)
	if staleID, ok := w.active[key]; ok {
		stale := w.players[staleID]
		if stale.Origin != origin {
			return nil, false, newJoinError(JoinAlreadyActive,
				fmt.Sprintf("The name %q is already being used by another player.", username))
		}
		// Same origin: treat as a reconnect or tab refresh and evict the
		// stale session.
		stale.Kick(EvictedTakeover)
		w.removePlayerLocked(staleID, true)
	}

	ps = &PlayerState{
		SessionID:    sessionID,
		Username:     username,
		Origin:       origin,
		Resources:    make(map[ResourceKind]int),
		LastActivity: w.now(),
		done:         make(chan struct{}),
	}

	rec, ok := w.records[key]
	if ok {
		restored = true
		ps.Score = rec.Score
		for kindName, count := range rec.Resources {
			ps.Resources[ResourceKind(kindName)] = count
		}
		ps.Pos = w.findValidPositionLocked(Position{X: rec.Position.X, Y: rec.Position.Y})
	} else {
		ps.Pos = w.randomValidPositionLocked()
	}

	w.players[sessionID] = ps
	w.active[key] = sessionID
	discovered := w.discoverAroundLocked(ps.Pos)
	w.persistPlayerLocked(ps)
	w.saveLocked()

	w.broadcast(protocol.MsgPlayerUpdate, protocol.PlayerUpdate{Player: w.wirePlayerLocked(ps)})
	for _, t := range discovered {
		w.broadcast(protocol.MsgTileUpdate, protocol.TileUpdate{Tile: wireTile(*t)})
	}
	w.broadcast(protocol.MsgLeaderboardUpdate, protocol.LeaderboardUpdate{Entries: w.leaderboardLocked()})

	return ps, restored, nil
}

// Snapshot builds the full-state payload sent to a session after join or
// reconnect.
func (w *World) Snapshot(sessionID string, restored bool) (protocol.StateSnapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ps, ok := w.players[sessionID]
	if !ok {
		return protocol.StateSnapshot{}, fmt.Errorf("unknown session %q", sessionID)
	}

	return protocol.StateSnapshot{
		Player:      w.wirePlayerLocked(ps),
		Players:     w.wirePlayersLocked(),
		Map:         w.wireTilesLocked(),
		Leaderboard: w.leaderboardLocked(),
		WorldCycle:  protocol.WorldCycle{Cycle: w.cycle, Timestamp: w.cycleAt.UnixMilli()},
		Restored:    restored,
	}, nil
}

// Leave unregisters a session, persisting final progress. Unknown sessions
// are ignored so an evicted session exiting after its replacement joined is
// harmless.
func (w *World) Leave(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.players[sessionID]; !ok {
		return
	}

	w.removePlayerLocked(sessionID, true)
	w.saveLocked()
	w.broadcast(protocol.MsgLeaderboardUpdate, protocol.LeaderboardUpdate{Entries: w.leaderboardLocked()})
}

// Tick runs lifecycle tasks that have come due. It satisfies the driver's
// Manager interface.
func (w *World) Tick(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for {
		phase, ok := w.tasks.pop(now)
		if !ok {
			return nil
		}
		w.runPhaseLocked(ctx, phase)
	}
}

// SaveNow persists the current snapshot. Used by the autosaver and at
// shutdown.
func (w *World) SaveNow() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, ps := range w.players {
		w.persistPlayerLocked(ps)
	}
	w.saveLocked()
}

// DeleteAccount removes a username's persisted record and kicks any active
// session. Returns false when the username is unknown.
func (w *World) DeleteAccount(username string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := strings.ToLower(username)
	_, hadRecord := w.records[key]
	delete(w.records, key)

	if sessionID, ok := w.active[key]; ok {
		w.players[sessionID].Kick(EvictedAccountDeleted)
		w.removePlayerLocked(sessionID, false)
		hadRecord = true
	}

	if hadRecord {
		w.saveLocked()
		w.broadcast(protocol.MsgLeaderboardUpdate, protocol.LeaderboardUpdate{Entries: w.leaderboardLocked()})
	}
	return hadRecord
}

// Reset wipes all in-memory and persisted state, regenerates the map, and
// disconnects everyone.
func (w *World) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, ps := range w.players {
		ps.Kick(EvictedReset)
	}
	w.players = make(map[string]*PlayerState)
	w.active = make(map[string]string)
	w.records = make(map[string]storage.PlayerRecord)
	w.tiles = w.gen.Generate()
	w.cycle = 0
	w.cycleAt = w.now()
	w.state = stateActive
	w.tasks.clear()
	w.saveLocked()

	w.broadcast(protocol.MsgAnnouncement, protocol.Announcement{Message: "The world has been reset."})
}

// Cycle returns the current world cycle counter and its start time.
func (w *World) Cycle() (int, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cycle, w.cycleAt
}

func validateUsername(username string) error {
	if username == "" {
		return newJoinError(JoinInvalidUsername, "Username must not be empty.")
	}
	if len(username) > maxUsernameLength {
		return newJoinError(JoinInvalidUsername,
			fmt.Sprintf("Username must be at most %d characters.", maxUsernameLength))
	}
	if !usernamePattern.MatchString(username) {
		return newJoinError(JoinInvalidUsername,
			"Username may only contain letters, digits, spaces, and _ . -")
	}
	return nil
}

// removePlayerLocked drops a session from the registry, optionally persisting
// its final progress first.
func (w *World) removePlayerLocked(sessionID string, persist bool) {
	ps, ok := w.players[sessionID]
	if !ok {
		return
	}

	if persist {
		w.persistPlayerLocked(ps)
	}

	delete(w.players, sessionID)
	key := strings.ToLower(ps.Username)
	if w.active[key] == sessionID {
		delete(w.active, key)
	}

	w.broadcast(protocol.MsgPlayerLeft, protocol.PlayerLeft{ID: sessionID, Username: ps.Username})
}

// persistPlayerLocked writes a session's progress into the record cache.
func (w *World) persistPlayerLocked(ps *PlayerState) {
	pos := ps.Pos
	if pos == OffGrid {
		pos = ps.prevPos
	}

	resources := make(map[string]int, len(ps.Resources))
	for kind, count := range ps.Resources {
		resources[string(kind)] = count
	}

	w.records[strings.ToLower(ps.Username)] = storage.PlayerRecord{
		Username:  ps.Username,
		Score:     ps.Score,
		Resources: resources,
		Position:  storage.Coord{X: pos.X, Y: pos.Y},
		LastSeen:  w.now(),
	}
}

// saveLocked writes the full snapshot document. Persistence errors are
// logged, never surfaced to clients.
func (w *World) saveLocked() {
	players := make(map[string]storage.PlayerRecord, len(w.records))
	for key, rec := range w.records {
		players[key] = rec
	}

	leaderboard := w.leaderboardLocked()
	entries := make([]storage.LeaderboardEntry, len(leaderboard))
	for i, e := range leaderboard {
		entries[i] = storage.LeaderboardEntry{Username: e.Username, Score: e.Score}
	}

	err := w.store.Save(&storage.Snapshot{
		Leaderboard: entries,
		Players:     players,
		WorldCycle:  storage.WorldCycle{Cycle: w.cycle, Timestamp: w.cycleAt.UnixMilli()},
	})
	if err != nil {
		slog.Warn("saving snapshot", "error", err)
	}
}

// discoverAroundLocked reveals all tiles within the discovery radius of pos,
// idempotently, and returns the tiles that changed.
func (w *World) discoverAroundLocked(pos Position) []*Tile {
	var changed []*Tile
	r := w.cfg.DiscoveryRadius
	for y := max(0, pos.Y-r); y <= min(w.cfg.Height-1, pos.Y+r); y++ {
		for x := max(0, pos.X-r); x <= min(w.cfg.Width-1, pos.X+r); x++ {
			tile := &w.tiles[y][x]
			if !tile.Discovered {
				tile.Discovered = true
				changed = append(changed, tile)
			}
		}
	}
	return changed
}

func (w *World) inBounds(pos Position) bool {
	return pos.X >= 0 && pos.X < w.cfg.Width && pos.Y >= 0 && pos.Y < w.cfg.Height
}

func (w *World) broadcast(event string, payload any) {
	if err := w.pub.Broadcast(event, payload); err != nil {
		slog.Warn("broadcasting event", "event", event, "error", err)
	}
}

func (w *World) toPlayer(sessionID, event string, payload any) {
	if err := w.pub.ToPlayer(sessionID, event, payload); err != nil {
		slog.Warn("publishing event to player", "event", event, "session", sessionID, "error", err)
	}
}

func (w *World) wirePlayerLocked(ps *PlayerState) protocol.Player {
	resources := make(map[string]int, len(ps.Resources))
	for kind, count := range ps.Resources {
		resources[string(kind)] = count
	}
	return protocol.Player{
		ID:        ps.SessionID,
		Username:  ps.Username,
		Position:  protocol.Position{X: ps.Pos.X, Y: ps.Pos.Y},
		Score:     ps.Score,
		Resources: resources,
	}
}

func (w *World) wirePlayersLocked() []protocol.Player {
	players := make([]protocol.Player, 0, len(w.players))
	for _, ps := range w.players {
		players = append(players, w.wirePlayerLocked(ps))
	}
	return players
}

func (w *World) wireTilesLocked() [][]protocol.Tile {
	rows := make([][]protocol.Tile, len(w.tiles))
	for y, row := range w.tiles {
		wireRow := make([]protocol.Tile, len(row))
		for x, tile := range row {
			wireRow[x] = wireTile(tile)
		}
		rows[y] = wireRow
	}
	return rows
}

func wireTile(t Tile) protocol.Tile {
	return protocol.Tile{
		X:          t.X,
		Y:          t.Y,
		Discovered: t.Discovered,
		Resource:   string(t.Resource),
		Obstacle:   t.Obstacle,
	}
}
