// Package topics derives the room-scoped channel names every participant
// publishes and subscribes on. The mapping is a pure function of the room
// identifier: two rooms never share a channel.
package topics

const roomPrefix = "room_"

// Channel suffixes, one per logical channel of the protocol.
const (
	suffixJoinRequest  = "join/req"
	suffixJoinResponse = "join/res"
	suffixPosition     = "position"
	suffixScore        = "update/scores"
	suffixPlayerJoined = "update/player_joined"
	suffixPlayerLeft   = "update/player_left"
	suffixMapChanged   = "update/map"
	suffixKeepAlive    = "keepalive"
)

// Topics holds the full channel set for one room. Generate it once per
// client and treat it as immutable for the client's lifetime.
type Topics struct {
	JoinRequest  string
	JoinResponse string
	Position     string
	Score        string
	PlayerJoined string
	PlayerLeft   string
	MapChanged   string
	KeepAlive    string
}

// ForRoom generates the channel set for roomID.
func ForRoom(roomID string) Topics {
	scoped := func(suffix string) string {
		return roomPrefix + roomID + "/" + suffix
	}
	return Topics{
		JoinRequest:  scoped(suffixJoinRequest),
		JoinResponse: scoped(suffixJoinResponse),
		Position:     scoped(suffixPosition),
		Score:        scoped(suffixScore),
		PlayerJoined: scoped(suffixPlayerJoined),
		PlayerLeft:   scoped(suffixPlayerLeft),
		MapChanged:   scoped(suffixMapChanged),
		KeepAlive:    scoped(suffixKeepAlive),
	}
}

// All lists every channel of the set. Useful for disjointness checks and
// bulk subscriptions.
func (t Topics) All() []string {
	return []string{
		t.JoinRequest,
		t.JoinResponse,
		t.Position,
		t.Score,
		t.PlayerJoined,
		t.PlayerLeft,
		t.MapChanged,
		t.KeepAlive,
	}
}
