package game

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mauro7x/maze-runner/internal/bus"
	"github.com/mauro7x/maze-runner/internal/geometry"
	"github.com/mauro7x/maze-runner/internal/maze"
	"github.com/mauro7x/maze-runner/internal/protocol"
	"github.com/mauro7x/maze-runner/internal/topics"
)

var (
	ErrAlreadyJoined    = errors.New("client already joined or joining")
	ErrNotActive        = errors.New("client is not active in a room")
	ErrOutsideStartZone = errors.New("cannot start outside the starting zone")
)

// State of the peer client's join handshake.
type State int

const (
	StateConnecting State = iota
	StateAwaitingJoinResponse
	StateActive
)

// ClientConfig carries everything a peer needs besides its bus adapter.
type ClientConfig struct {
	Topics          topics.Topics
	DesiredUsername string

	PublishPositionEvery time.Duration
	CheckGoalEvery       time.Duration
	KeepAliveEvery       time.Duration

	// AspectRatio of the drawing surface; the collision radius is divided
	// by it on the x axis so player footprints stay visually circular.
	AspectRatio float64
	GoalReward  int
}

// PlayerView is a read-only copy of one roster entry.
type PlayerView struct {
	Username string             `json:"username"`
	Color    protocol.Color     `json:"color"`
	Score    int                `json:"score"`
	Position *geometry.Position `json:"position,omitempty"`
	Moving   bool               `json:"moving"`
}

// RoomView is a point-in-time copy of the client's mirror, for the render
// and HTTP collaborators.
type RoomView struct {
	Username        string       `json:"username"`
	CurrentMapIndex int          `json:"currentMapIndex"`
	Players         []PlayerView `json:"players"`
}

// Standing is one scoreboard row.
type Standing struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// Client is the peer present in every participant. It maintains a local
// mirror of the roster, runs collision and goal detection locally, and
// publishes its own movement and score events.
type Client struct {
	adapter *bus.Adapter
	cfg     ClientConfig

	mu       sync.Mutex
	state    State
	username string
	color    protocol.Color
	score    int
	position *geometry.Position
	moving   bool
	// Dedup so the position ticker does not republish identical samples.
	lastPublished *geometry.Position

	players  map[string]*protocol.Player
	mapIndex int
	geo      *geometry.Geometry

	joined chan struct{}
}

// NewClient binds the peer's handlers onto the adapter. The client starts
// in Connecting; call Join once the transport reports connected.
func NewClient(adapter *bus.Adapter, cfg ClientConfig) *Client {
	// The effective desired name is fixed here so the join request and the
	// response filter agree even when no username was given.
	if cfg.DesiredUsername == "" {
		cfg.DesiredUsername = protocol.DefaultUsername
	}
	c := &Client{
		adapter: adapter,
		cfg:     cfg,
		players: make(map[string]*protocol.Player),
		joined:  make(chan struct{}),
	}
	t := cfg.Topics
	adapter.Bind(t.JoinResponse, c.handleJoinResponse)
	adapter.Bind(t.Position, c.handlePosition)
	adapter.Bind(t.Score, c.handleScore)
	adapter.Bind(t.PlayerJoined, c.handlePlayerJoined)
	adapter.Bind(t.PlayerLeft, c.handlePlayerLeft)
	adapter.Bind(t.MapChanged, c.handleMapChanged)
	adapter.OnLifecycle(func(e bus.Event, err error) {
		// Observed and logged only: no automatic re-join, no state resync.
		log.Info().Str("module", "game.client").Stringer("event", e).Err(err).Msg("bus lifecycle event")
	})
	return c
}

// Join subscribes to the join-response channel and publishes the join
// request. There is no timeout: if no response ever arrives the client
// stays in AwaitingJoinResponse.
func (c *Client) Join() error {
	c.mu.Lock()
	if c.state != StateConnecting {
		c.mu.Unlock()
		return ErrAlreadyJoined
	}
	c.state = StateAwaitingJoinResponse
	c.mu.Unlock()

	if err := c.adapter.Subscribe(c.cfg.Topics.JoinResponse); err != nil {
		c.mu.Lock()
		c.state = StateConnecting
		c.mu.Unlock()
		return err
	}
	c.publish(c.cfg.Topics.JoinRequest, protocol.JoinRequest{Username: c.cfg.DesiredUsername})
	return nil
}

// Joined is closed once the join response has been adopted.
func (c *Client) Joined() <-chan struct{} {
	return c.joined
}

// Run drives the client's periodic tasks until ctx is canceled: position
// publication, goal checking and the liveness ping.
func (c *Client) Run(ctx context.Context) {
	publishTicker := time.NewTicker(c.cfg.PublishPositionEvery)
	goalTicker := time.NewTicker(c.cfg.CheckGoalEvery)
	keepAliveTicker := time.NewTicker(c.cfg.KeepAliveEvery)
	defer publishTicker.Stop()
	defer goalTicker.Stop()
	defer keepAliveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-publishTicker.C:
			c.publishPosition()
		case <-goalTicker.C:
			c.checkGoal()
		case <-keepAliveTicker.C:
			c.publish(c.cfg.Topics.KeepAlive, protocol.KeepAliveToken)
		}
	}
}

// Close publishes a best-effort leave notification and closes the bus
// connection. Nothing is awaited: a crashed tab leaves a stale roster
// entry everywhere until the room ends.
func (c *Client) Close() error {
	c.mu.Lock()
	username := c.username
	active := c.state == StateActive
	c.mu.Unlock()

	if active {
		c.publish(c.cfg.Topics.PlayerLeft, protocol.PlayerLeft{Username: username})
	}
	return c.adapter.Close()
}

// normalize clamps device coordinates into the surface and scales them to
// [0,1) the way every peer does, so all mirrors agree on geometry.
func normalize(x, y, width, height float64) geometry.Position {
	clampF := func(v, hi float64) float64 {
		if v < 0 {
			return 0
		}
		if v > hi {
			return hi
		}
		return v
	}
	return geometry.Position{
		X: clampF(x, width) / (width + 1),
		Y: clampF(y, height) / (height + 1),
	}
}

// PointerDown starts a movement gesture. Starting outside the start zone is
// rejected and the state is unchanged.
func (c *Client) PointerDown(x, y, width, height float64) error {
	pos := normalize(x, y, width, height)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return ErrNotActive
	}
	if !c.geo.IsStart(pos) {
		return ErrOutsideStartZone
	}
	c.moving = true
	c.position = &pos
	return nil
}

// PointerMove feeds one movement sample. Wall hits stop the player and
// erase it everywhere; goal hits stop it and credit the reward.
func (c *Client) PointerMove(x, y, width, height float64) {
	pos := normalize(x, y, width, height)

	c.mu.Lock()
	if c.state != StateActive || !c.moving {
		c.mu.Unlock()
		return
	}
	switch {
	case c.geo.HitsWall(pos):
		c.stopMovingLocked()
		c.mu.Unlock()
		c.publishStop()
	case c.geo.HitsGoal(pos):
		username, score := c.creditGoalLocked()
		c.mu.Unlock()
		c.publishStop()
		c.publish(c.cfg.Topics.Score, protocol.ScoreUpdate{Username: username, Score: score})
	default:
		c.position = &pos
		c.mu.Unlock()
	}
}

// PointerUp ends the gesture; the player leaves the board.
func (c *Client) PointerUp() {
	c.stopIfMoving()
}

// PointerLeave is treated exactly like releasing the pointer.
func (c *Client) PointerLeave() {
	c.stopIfMoving()
}

func (c *Client) stopIfMoving() {
	c.mu.Lock()
	if !c.moving {
		c.mu.Unlock()
		return
	}
	c.stopMovingLocked()
	c.mu.Unlock()
	c.publishStop()
}

// stopMovingLocked clears movement state. Callers must hold c.mu and must
// publish the stop event after releasing it.
func (c *Client) stopMovingLocked() {
	c.moving = false
	c.position = nil
	c.lastPublished = nil
}

// creditGoalLocked stops the player and applies the goal reward locally.
func (c *Client) creditGoalLocked() (username string, score int) {
	c.stopMovingLocked()
	c.score += c.cfg.GoalReward
	if self, ok := c.players[c.username]; ok {
		self.Score = c.score
	}
	return c.username, c.score
}

// publishStop tells every peer to erase this player: position null, not
// moving. Peers must treat this as "erase", never as "move to origin".
func (c *Client) publishStop() {
	c.mu.Lock()
	username := c.username
	c.mu.Unlock()
	c.publish(c.cfg.Topics.Position, protocol.PositionUpdate{Username: username, Position: nil, Moving: false})
}

// publishPosition publishes the current sample unless it matches the last
// one actually sent. The dedup bounds publish rate, nothing more.
func (c *Client) publishPosition() {
	c.mu.Lock()
	if c.state != StateActive || !c.moving || c.position == nil {
		c.mu.Unlock()
		return
	}
	if c.lastPublished != nil && *c.lastPublished == *c.position {
		c.mu.Unlock()
		return
	}
	pos := *c.position
	c.lastPublished = &pos
	username := c.username
	c.mu.Unlock()

	c.publish(c.cfg.Topics.Position, protocol.PositionUpdate{Username: username, Position: &pos, Moving: true})
}

// checkGoal re-tests the current position against the goal zone, covering
// the case where the pointer rests inside it without further samples.
func (c *Client) checkGoal() {
	c.mu.Lock()
	if c.state != StateActive || !c.moving || c.position == nil || !c.geo.HitsGoal(*c.position) {
		c.mu.Unlock()
		return
	}
	username, score := c.creditGoalLocked()
	c.mu.Unlock()

	c.publishStop()
	c.publish(c.cfg.Topics.Score, protocol.ScoreUpdate{Username: username, Score: score})
}

// usernameMatches accepts the desired name itself or the desired name with
// the authority's numeric dedup suffix appended.
func usernameMatches(assigned, desired string) bool {
	if assigned == desired {
		return true
	}
	rest, found := strings.CutPrefix(assigned, desired+"_")
	if !found {
		return false
	}
	_, err := strconv.Atoi(rest)
	return err == nil
}

func (c *Client) handleJoinResponse(payload []byte) {
	var resp protocol.JoinResponse
	if err := protocol.Decode(payload, &resp); err != nil {
		log.Warn().Err(err).Str("module", "game.client").Msg("malformed join response")
		return
	}

	c.mu.Lock()
	if c.state != StateAwaitingJoinResponse {
		c.mu.Unlock()
		return
	}
	// The response channel is shared: responses meant for other joiners are
	// filtered out by username.
	if !usernameMatches(resp.Username, c.cfg.DesiredUsername) {
		c.mu.Unlock()
		return
	}

	c.username = resp.Username
	c.players = resp.Players
	if self, ok := resp.Players[resp.Username]; ok {
		c.color = self.Color
		c.score = self.Score
	}
	c.mapIndex = resp.CurrentMapIndex
	c.deriveGeometryLocked()
	c.state = StateActive
	c.mu.Unlock()

	if err := c.adapter.Unsubscribe(c.cfg.Topics.JoinResponse); err != nil {
		log.Warn().Err(err).Str("module", "game.client").Msg("unsubscribing join response channel")
	}
	t := c.cfg.Topics
	if err := c.adapter.Subscribe(t.Position, t.Score, t.PlayerJoined, t.PlayerLeft, t.MapChanged); err != nil {
		log.Error().Err(err).Str("module", "game.client").Msg("subscribing steady-state channels")
	}

	close(c.joined)
	log.Info().Str("module", "game.client").Str("username", resp.Username).Msg("joined room")
}

func (c *Client) handlePosition(payload []byte) {
	var upd protocol.PositionUpdate
	if err := protocol.Decode(payload, &upd); err != nil {
		log.Warn().Err(err).Str("module", "game.client").Msg("malformed position payload")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if upd.Username == c.username {
		// Already authoritative over ourselves locally.
		return
	}
	p, known := c.players[upd.Username]
	if !known {
		log.Warn().Str("module", "game.client").Str("username", upd.Username).Msg("position for unknown player ignored")
		return
	}
	p.Position = upd.Position
	p.Moving = upd.Moving
}

func (c *Client) handleScore(payload []byte) {
	var upd protocol.ScoreUpdate
	if err := protocol.Decode(payload, &upd); err != nil {
		log.Warn().Err(err).Str("module", "game.client").Msg("malformed score payload")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if upd.Username == c.username {
		return
	}
	p, known := c.players[upd.Username]
	if !known {
		log.Warn().Str("module", "game.client").Str("username", upd.Username).Msg("score for unknown player ignored")
		return
	}
	p.Score = upd.Score
}

func (c *Client) handlePlayerJoined(payload []byte) {
	var joined protocol.PlayerJoined
	if err := protocol.Decode(payload, &joined); err != nil {
		log.Warn().Err(err).Str("module", "game.client").Msg("malformed player-joined payload")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if joined.Username == c.username {
		return
	}
	c.players[joined.Username] = &protocol.Player{Color: joined.Player.Color}
}

func (c *Client) handlePlayerLeft(payload []byte) {
	var left protocol.PlayerLeft
	if err := protocol.Decode(payload, &left); err != nil {
		log.Warn().Err(err).Str("module", "game.client").Msg("malformed player-left payload")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, known := c.players[left.Username]; !known {
		log.Warn().Str("module", "game.client").Str("username", left.Username).Msg("player is unknown")
		return
	}
	if left.Username == c.username {
		return
	}
	delete(c.players, left.Username)
	log.Info().Str("module", "game.client").Str("username", left.Username).Msg("player disconnected")
}

func (c *Client) handleMapChanged(payload []byte) {
	var changed protocol.MapChanged
	if err := protocol.Decode(payload, &changed); err != nil {
		log.Warn().Err(err).Str("module", "game.client").Msg("malformed map-changed payload")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.mapIndex = maze.Normalize(changed.CurrentMapIndex)
	c.deriveGeometryLocked()
	log.Info().Str("module", "game.client").Int("map", c.mapIndex).Msg("map changed")
}

// deriveGeometryLocked rebuilds the cached geometry for the current map.
// Callers must hold c.mu.
func (c *Client) deriveGeometryLocked() {
	m := maze.At(c.mapIndex)
	aspect := c.cfg.AspectRatio
	if aspect <= 0 {
		aspect = 1
	}
	geo, err := geometry.Process(m.Grid(), geometry.Radius{X: m.Radius / aspect, Y: m.Radius})
	if err != nil {
		// The built-in catalog always processes; reaching this means the
		// catalog itself is broken.
		log.Error().Err(err).Str("module", "game.client").Int("map", c.mapIndex).Msg("deriving map geometry")
		return
	}
	c.geo = geo
}

// Geometry returns the derived geometry of the active map, for rendering.
func (c *Client) Geometry() *geometry.Geometry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.geo
}

// State reports the client's join state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Username returns the authority-assigned username, empty before Active.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Snapshot copies the mirror for the render and HTTP collaborators. The
// caller's own entry reflects local state, which is authoritative for it.
func (c *Client) Snapshot() RoomView {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := RoomView{
		Username:        c.username,
		CurrentMapIndex: c.mapIndex,
		Players:         make([]PlayerView, 0, len(c.players)),
	}
	for name, p := range c.players {
		pv := PlayerView{Username: name, Color: p.Color, Score: p.Score, Moving: p.Moving}
		if p.Position != nil {
			pos := *p.Position
			pv.Position = &pos
		}
		if name == c.username {
			pv.Color = c.color
			pv.Score = c.score
			pv.Moving = c.moving
			pv.Position = nil
			if c.position != nil {
				pos := *c.position
				pv.Position = &pos
			}
		}
		view.Players = append(view.Players, pv)
	}
	sort.Slice(view.Players, func(i, j int) bool {
		return view.Players[i].Username < view.Players[j].Username
	})
	return view
}

// Scoreboard lists all players strictly descending by score, ties broken
// by username so the order is stable.
func (c *Client) Scoreboard() []Standing {
	c.mu.Lock()
	defer c.mu.Unlock()

	standings := make([]Standing, 0, len(c.players))
	for name, p := range c.players {
		score := p.Score
		if name == c.username {
			score = c.score
		}
		standings = append(standings, Standing{Username: name, Score: score})
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Score != standings[j].Score {
			return standings[i].Score > standings[j].Score
		}
		return standings[i].Username < standings[j].Username
	})
	return standings
}

func (c *Client) publish(topic string, v any) {
	payload, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "game.client").Str("topic", topic).Msg("encoding payload")
		return
	}
	if err := c.adapter.Publish(topic, payload); err != nil {
		log.Error().Err(err).Str("module", "game.client").Str("topic", topic).Msg("publishing payload")
	}
}
