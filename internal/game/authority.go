// Package game implements the two roles of a room: the authority that owns
// the canonical roster and map selection, and the peer client every
// participant runs, including the authority's own tab.
package game

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mauro7x/maze-runner/internal/bus"
	"github.com/mauro7x/maze-runner/internal/maze"
	"github.com/mauro7x/maze-runner/internal/protocol"
	"github.com/mauro7x/maze-runner/internal/topics"
)

// Authority owns the canonical room state. Exactly one lives per room; it
// accepts joins for its whole lifetime and the room dies with it.
type Authority struct {
	adapter *bus.Adapter
	topics  topics.Topics

	mu              sync.Mutex
	players         map[string]*protocol.Player
	currentMapIndex int
}

// RoomState is a point-in-time copy of the authority's canonical state.
type RoomState struct {
	Players         map[string]protocol.Player `json:"players"`
	CurrentMapIndex int                        `json:"currentMapIndex"`
}

// NewAuthority binds the authority's handlers onto the adapter. Call Start
// to begin accepting joins.
func NewAuthority(adapter *bus.Adapter, t topics.Topics) *Authority {
	a := &Authority{
		adapter: adapter,
		topics:  t,
		players: make(map[string]*protocol.Player),
	}
	adapter.Bind(t.JoinRequest, a.handleJoinRequest)
	adapter.Bind(t.PlayerLeft, a.handlePlayerLeft)
	adapter.Bind(t.Score, a.handleScoreUpdate)
	return a
}

// Start subscribes the authority to its inbound channels.
func (a *Authority) Start() error {
	err := a.adapter.Subscribe(a.topics.JoinRequest, a.topics.PlayerLeft, a.topics.Score)
	if err != nil {
		return fmt.Errorf("subscribing authority channels: %w", err)
	}
	return nil
}

func (a *Authority) handleJoinRequest(payload []byte) {
	var req protocol.JoinRequest
	if err := protocol.Decode(payload, &req); err != nil {
		log.Warn().Err(err).Str("module", "game.authority").Msg("malformed join request")
		return
	}

	desired := req.Username
	if desired == "" {
		desired = protocol.DefaultUsername
	}

	a.mu.Lock()
	// Avoid repeated usernames: append an incrementing suffix until unique.
	username := desired
	for number := 1; ; number++ {
		if _, taken := a.players[username]; !taken {
			break
		}
		username = fmt.Sprintf("%s_%d", desired, number+1)
	}

	player := &protocol.Player{Color: protocol.RandomColor()}
	a.players[username] = player

	resp := protocol.JoinResponse{
		Username:        username,
		Players:         a.rosterLocked(),
		CurrentMapIndex: a.currentMapIndex,
	}
	a.mu.Unlock()

	a.publish(a.topics.JoinResponse, resp)
	a.publish(a.topics.PlayerJoined, protocol.PlayerJoined{
		Username: username,
		Player:   &protocol.Player{Color: player.Color},
	})

	log.Info().Str("module", "game.authority").Str("username", username).Msg("player connected")
}

func (a *Authority) handlePlayerLeft(payload []byte) {
	var left protocol.PlayerLeft
	if err := protocol.Decode(payload, &left); err != nil {
		log.Warn().Err(err).Str("module", "game.authority").Msg("malformed player-left payload")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, known := a.players[left.Username]; !known {
		log.Warn().Str("module", "game.authority").Str("username", left.Username).Msg("player is unknown")
		return
	}
	delete(a.players, left.Username)
	log.Info().Str("module", "game.authority").Str("username", left.Username).Msg("player disconnected")
}

func (a *Authority) handleScoreUpdate(payload []byte) {
	var upd protocol.ScoreUpdate
	if err := protocol.Decode(payload, &upd); err != nil {
		log.Warn().Err(err).Str("module", "game.authority").Msg("malformed score payload")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	p, known := a.players[upd.Username]
	if !known {
		log.Debug().Str("module", "game.authority").Str("username", upd.Username).Msg("score for unknown player ignored")
		return
	}
	// Last write wins, no ordering token.
	p.Score = upd.Score
}

// NextMap advances the active map cyclically and broadcasts the new index.
func (a *Authority) NextMap() int {
	return a.shiftMap(1)
}

// PreviousMap retreats the active map cyclically and broadcasts the new index.
func (a *Authority) PreviousMap() int {
	return a.shiftMap(-1)
}

func (a *Authority) shiftMap(delta int) int {
	a.mu.Lock()
	a.currentMapIndex = maze.Normalize(a.currentMapIndex + delta)
	index := a.currentMapIndex
	a.mu.Unlock()

	a.publish(a.topics.MapChanged, protocol.MapChanged{CurrentMapIndex: index})
	log.Info().Str("module", "game.authority").Int("map", index).Msg("map changed")
	return index
}

// Snapshot copies the canonical room state, for the control surface.
func (a *Authority) Snapshot() RoomState {
	a.mu.Lock()
	defer a.mu.Unlock()
	players := make(map[string]protocol.Player, len(a.players))
	for name, p := range a.players {
		players[name] = *p
	}
	return RoomState{Players: players, CurrentMapIndex: a.currentMapIndex}
}

// rosterLocked copies the roster for embedding into a response payload.
// Callers must hold a.mu.
func (a *Authority) rosterLocked() map[string]*protocol.Player {
	roster := make(map[string]*protocol.Player, len(a.players))
	for name, p := range a.players {
		clone := *p
		roster[name] = &clone
	}
	return roster
}

func (a *Authority) publish(topic string, v any) {
	payload, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "game.authority").Str("topic", topic).Msg("encoding broadcast")
		return
	}
	if err := a.adapter.Publish(topic, payload); err != nil {
		log.Error().Err(err).Str("module", "game.authority").Str("topic", topic).Msg("publishing broadcast")
	}
}
