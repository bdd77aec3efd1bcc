package protocol

// Inbound message types, sent by clients over the websocket connection.
const (
	MsgJoin = "join"
	MsgMove = "move"
)

// Outbound message types, pushed by the server.
const (
	MsgLoginError        = "loginError"
	MsgStateSnapshot     = "stateSnapshot"
	MsgStateUpdate       = "stateUpdate"
	MsgTileUpdate        = "tileUpdate"
	MsgPlayerUpdate      = "playerUpdate"
	MsgPlayerLeft        = "playerLeft"
	MsgLeaderboardUpdate = "leaderboardUpdate"
	MsgResourceCollected = "resourceCollected"
	MsgMovementBlocked   = "movementBlocked"
	MsgAnnouncement      = "announcement"
	MsgWorldCycleUpdate  = "worldCycleUpdate"
)

// Reasons carried by a movementBlocked notice.
const (
	BlockedRegeneration = "regeneration"
	BlockedObstacle     = "obstacle"
)

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Tile struct {
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Discovered bool   `json:"discovered"`
	Resource   string `json:"resource,omitempty"`
	Obstacle   bool   `json:"obstacle,omitempty"`
}

type Player struct {
	ID        string         `json:"id"`
	Username  string         `json:"username"`
	Position  Position       `json:"position"`
	Score     int            `json:"score"`
	Resources map[string]int `json:"resources"`
}

type LeaderboardEntry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type WorldCycle struct {
	Cycle     int   `json:"cycle"`
	Timestamp int64 `json:"timestamp"`
}

// JoinRequest is the first frame a client must send after connecting.
type JoinRequest struct {
	Username string `json:"username"`
}

// MoveRequest asks to move the player to an adjacent tile.
type MoveRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type LoginError struct {
	Message string `json:"message"`
}

// StateSnapshot is the full game state sent to a player after a successful join.
type StateSnapshot struct {
	Player      Player             `json:"player"`
	Players     []Player           `json:"players"`
	Map         [][]Tile           `json:"map"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	WorldCycle  WorldCycle         `json:"worldCycle"`
	Restored    bool               `json:"restored"`
}

// StateUpdate carries a partial state refresh. Either field may be omitted.
type StateUpdate struct {
	Players []Player `json:"players,omitempty"`
	Map     [][]Tile `json:"map,omitempty"`
}

type TileUpdate struct {
	Tile Tile `json:"tile"`
}

type PlayerUpdate struct {
	Player Player `json:"player"`
}

type PlayerLeft struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type LeaderboardUpdate struct {
	Entries []LeaderboardEntry `json:"entries"`
}

type ResourceCollected struct {
	Position Position `json:"position"`
	Resource string   `json:"resource"`
	Points   int      `json:"points"`
	Score    int      `json:"score"`
}

type MovementBlocked struct {
	Reason string `json:"reason"`
}

type Announcement struct {
	Message string `json:"message"`
}
