// Package protocol defines the payloads carried on the room channels. The
// channel a message arrives on identifies its type, so payloads are plain
// JSON objects without an envelope.
package protocol

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/mauro7x/maze-runner/internal/geometry"
)

// DefaultUsername is assigned when a join request carries no username.
const DefaultUsername = "Player"

// Color is an RGB triple picked by the authority when a player joins.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// RandomColor returns a uniformly random color.
func RandomColor() Color {
	return Color{
		R: uint8(rand.Intn(256)),
		G: uint8(rand.Intn(256)),
		B: uint8(rand.Intn(256)),
	}
}

// Player is the roster entry replicated to every peer. Position is nil while
// the player is not on the board; peers must treat nil as "erased", never as
// the origin.
type Player struct {
	Color    Color              `json:"color"`
	Score    int                `json:"score"`
	Position *geometry.Position `json:"position,omitempty"`
	Moving   bool               `json:"moving"`
}

// JoinRequest is published by a peer that wants to enter the room.
type JoinRequest struct {
	Username string `json:"username,omitempty"`
}

// JoinResponse is published by the authority on the shared response channel;
// requesters filter it by username.
type JoinResponse struct {
	Username        string             `json:"username"`
	Players         map[string]*Player `json:"players"`
	CurrentMapIndex int                `json:"currentMapIndex"`
}

// PositionUpdate carries a peer's movement sample. A nil position with
// Moving=false means the player left the board.
type PositionUpdate struct {
	Username string             `json:"username"`
	Position *geometry.Position `json:"position"`
	Moving   bool               `json:"moving"`
}

// ScoreUpdate overwrites the stored score for a player. Last write wins.
type ScoreUpdate struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// PlayerJoined is broadcast by the authority after accepting a join.
type PlayerJoined struct {
	Username string  `json:"username"`
	Player   *Player `json:"player"`
}

// PlayerLeft is published by a departing peer and ingested independently by
// the authority and every other peer.
type PlayerLeft struct {
	Username string `json:"username"`
}

// MapChanged is broadcast by the authority when the owner navigates maps.
type MapChanged struct {
	CurrentMapIndex int `json:"currentMapIndex"`
}

// KeepAliveToken is the opaque payload of the liveness ping.
const KeepAliveToken = "ping"

// Encode serializes a payload to its transport encoding.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return data, nil
}

// Decode parses a payload into the struct the channel dictates.
func Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}
