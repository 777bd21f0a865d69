package multiplayer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/netpong/internal/game"
	"github.com/vovakirdan/netpong/internal/logging"
	"github.com/vovakirdan/netpong/internal/protocol"
)

// CoordinatorConfig holds configuration for the coordinator.
type CoordinatorConfig struct {
	SearchTimeout time.Duration // How long a player may wait for an opponent
	CleanupPeriod time.Duration // How often to expire waiting players
	WinScore      int           // Score credited to the winner of an unplayed forfeit
}

// DefaultCoordinatorConfig returns sensible defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		SearchTimeout: 60 * time.Second,
		CleanupPeriod: 5 * time.Second,
		WinScore:      5,
	}
}

// Coordinator pairs waiting players and relays messages inside matches.
type Coordinator struct {
	config      CoordinatorConfig
	sessions    *SessionRegistry
	registry    *Registry
	log         *log.Logger
	resultSaver MatchResultSaver // Optional, can be nil
	observer    Observer
	now         func() time.Time

	mu    sync.RWMutex
	queue *Queue

	// Message channel for async processing
	msgChan  chan CoordinatorMessage
	done     chan struct{}
	stopOnce sync.Once
	saves    sync.WaitGroup
}

// NewCoordinator creates a new coordinator.
func NewCoordinator(cfg CoordinatorConfig, sessions *SessionRegistry, logger *log.Logger) *Coordinator {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = DefaultCoordinatorConfig().CleanupPeriod
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = DefaultCoordinatorConfig().SearchTimeout
	}
	return &Coordinator{
		config:   cfg,
		sessions: sessions,
		registry: NewRegistry(),
		log:      logging.OrDiscard(logger),
		observer: nopObserver{},
		now:      time.Now,
		queue:    NewQueue(),
		msgChan:  make(chan CoordinatorMessage, 256),
		done:     make(chan struct{}),
	}
}

// SetResultSaver sets the optional match result saver.
func (c *Coordinator) SetResultSaver(saver MatchResultSaver) {
	c.resultSaver = saver
}

// SetObserver sets the metrics observer.
func (c *Coordinator) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	c.observer = o
}

// Sessions returns the session registry transports register with.
func (c *Coordinator) Sessions() *SessionRegistry {
	return c.sessions
}

// Serve processes messages until ctx is cancelled or Stop is called.
// It implements suture.Service.
func (c *Coordinator) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.msgChan:
			c.handleMessage(msg)
		case <-ticker.C:
			c.cleanupExpiredSearches(c.now())
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-c.done:
			return nil
		}
	}
}

// Stop shuts down the coordinator and waits for pending result saves.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
	c.saves.Wait()
}

// Send sends a message to the coordinator for async processing.
func (c *Coordinator) Send(msg CoordinatorMessage) {
	select {
	case c.msgChan <- msg:
	case <-c.done:
	}
}

func (c *Coordinator) handleMessage(msg CoordinatorMessage) {
	switch m := msg.(type) {
	case InboundMsg:
		c.handleInbound(m)
	case SessionDisconnectedMsg:
		c.handleSessionDisconnected(m)
	}
}

func (c *Coordinator) handleInbound(msg InboundMsg) {
	session, ok := c.sessions.Get(msg.SessionID)
	if !ok {
		c.log.Debug("message from unknown session", "session", msg.SessionID)
		return
	}

	switch m := msg.Message.(type) {
	case protocol.JoinGame:
		c.handleJoin(session, m)
	case protocol.LeaveGame:
		c.handleLeave(session.ID())
	case protocol.PlayerInput:
		c.relayInput(session, m)
	case protocol.GameSync, protocol.GameStart, protocol.GameEnd:
		c.relayHostMessage(session, m)
	default:
		c.reject(session, protocol.CodeBadMessage, fmt.Sprintf("%s is not accepted from peers", m.Type()))
	}
}

func (c *Coordinator) handleJoin(session SessionHandle, msg protocol.JoinGame) {
	mode, err := game.ParseMode(msg.GameMode)
	if err != nil || !mode.Online() {
		c.reject(session, protocol.CodeBadMode, fmt.Sprintf("unsupported game mode %q", msg.GameMode))
		return
	}
	if err := protocol.Validate(msg); err != nil {
		c.reject(session, protocol.CodeBadMessage, err.Error())
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := session.ID()
	if c.queue.Contains(id) {
		c.reject(session, protocol.CodeAlreadyJoined, "already searching")
		return
	}
	if match, inMatch := c.registry.BySession(id); inMatch {
		if !match.recorded {
			c.reject(session, protocol.CodeAlreadyJoined, "already in a match")
			return
		}
		c.leaveMatch(id)
	}

	now := c.now()
	player := &Player{Session: session, Name: msg.Name}

	opponent, found := c.queue.PopOpponent(mode)
	for found && closed(opponent.Session.Done()) {
		opponent, found = c.queue.PopOpponent(mode)
	}
	if !found {
		c.queue.Push(player, mode, now)
		c.observer.QueueDepth(c.queue.Len())
		c.log.Info("player queued", "session", id, "name", msg.Name, "mode", mode)
		return
	}
	c.observer.QueueDepth(c.queue.Len())

	// The player who waited longest hosts.
	match := c.registry.Create(mode, opponent, player, now)
	c.observer.ActiveMatches(c.registry.Count())
	c.log.Info("match created", "match", match.ID, "mode", mode, "host", opponent.Name, "guest", player.Name)

	opponent.Session.Send(protocol.OpponentFound{
		MatchID:  string(match.ID),
		Opponent: player.Name,
		IsHost:   true,
		GameMode: string(mode),
		Message:  "Opponent found! You are the host.",
	})
	session.Send(protocol.OpponentFound{
		MatchID:  string(match.ID),
		Opponent: opponent.Name,
		IsHost:   false,
		GameMode: string(mode),
		Message:  "Opponent found! Waiting for the host to start.",
	})
}

func (c *Coordinator) handleLeave(id SessionID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue.Remove(id) {
		c.observer.QueueDepth(c.queue.Len())
		c.log.Debug("search cancelled", "session", id)
		return
	}
	if !c.leaveMatch(id) {
		c.log.Debug("leave_game outside a match", "session", id)
	}
}

func (c *Coordinator) relayInput(session SessionHandle, msg protocol.PlayerInput) {
	if err := protocol.Validate(msg); err != nil {
		c.reject(session, protocol.CodeBadMessage, err.Error())
		return
	}
	match, ok := c.registry.BySession(session.ID())
	if !ok || match.recorded {
		c.log.Debug("player_input outside a match", "session", session.ID())
		return
	}
	if _, isHost := match.PlayerOf(session.ID()); isHost {
		c.log.Debug("host input ignored", "match", match.ID)
		return
	}
	match.Host.Session.Send(msg)
	c.observer.MessageRelayed(msg.Type())
}

func (c *Coordinator) relayHostMessage(session SessionHandle, msg protocol.Message) {
	if err := protocol.Validate(msg); err != nil {
		c.reject(session, protocol.CodeBadMessage, err.Error())
		return
	}
	_, isEnd := msg.(protocol.GameEnd)

	match, ok := c.registry.BySession(session.ID())
	if !ok {
		if isEnd {
			c.log.Debug("game_end outside a match", "session", session.ID())
			return
		}
		c.reject(session, protocol.CodeNoMatch, "not in a match")
		return
	}
	if _, isHost := match.PlayerOf(session.ID()); !isHost {
		c.log.Warn("host-only message from guest", "match", match.ID, "type", msg.Type(), "session", session.ID())
		c.reject(session, protocol.CodeNotHost, fmt.Sprintf("only the host may send %s", msg.Type()))
		return
	}
	if match.recorded {
		// The guest is gone; the host's own end notice closes the match.
		if isEnd {
			c.destroy(match)
		}
		return
	}

	now := c.now()
	if gs, ok := msg.(protocol.GameSync); ok {
		match.observe(gs, now)
	}
	match.Guest.Session.Send(msg)
	c.observer.MessageRelayed(msg.Type())

	if end, ok := msg.(protocol.GameEnd); ok {
		winner := ""
		switch game.Side(end.Winner) {
		case game.SideLeft:
			winner = match.Host.Name
		case game.SideRight:
			winner = match.Guest.Name
		}
		c.record(match, match.result(end.Score1, end.Score2, winner, end.Reason, now))
		c.destroy(match)
	}
}

func (c *Coordinator) handleSessionDisconnected(msg SessionDisconnectedMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue.Remove(msg.SessionID) {
		c.observer.QueueDepth(c.queue.Len())
	}
	c.leaveMatch(msg.SessionID)
}

// leaveMatch detaches id from its match. The remaining player is told and
// wins by forfeit; once both players are gone the match is destroyed.
// Must be called with c.mu held. Reports whether id was in a match.
func (c *Coordinator) leaveMatch(id SessionID) bool {
	match, ok := c.registry.BySession(id)
	if !ok {
		return false
	}
	player, _ := match.PlayerOf(id)
	player.left = true
	c.registry.Detach(id)

	now := c.now()
	opponent := match.Opponent(id)
	if opponent.left || closed(opponent.Session.Done()) {
		if !match.recorded {
			c.record(match, match.result(match.score1, match.score2, "", protocol.ReasonCancelled, now))
		}
		c.destroy(match)
		return true
	}

	if !match.recorded {
		c.log.Info("player left match", "match", match.ID, "name", player.Name)
		opponent.Session.Send(protocol.OpponentDisconnected{})
		c.record(match, match.forfeitResult(opponent, c.config.WinScore, now))
	}
	return true
}

func (c *Coordinator) destroy(match *Match) {
	c.registry.Remove(match.ID)
	c.observer.ActiveMatches(c.registry.Count())
	c.log.Debug("match destroyed", "match", match.ID)
}

// record marks the match finished and persists its result.
func (c *Coordinator) record(match *Match, result MatchResultData) {
	match.recorded = true
	c.observer.MatchEnded(match.Mode, result.EndReason)
	c.log.Info("match ended",
		"match", match.ID,
		"reason", result.EndReason,
		"score", fmt.Sprintf("%d-%d", result.Score1, result.Score2),
		"winner", result.WinnerName)

	if c.resultSaver == nil {
		return
	}
	// Best effort save, don't block the relay on the database.
	c.saves.Add(1)
	go func() {
		defer c.saves.Done()
		if err := c.resultSaver.SaveMatchResult(result); err != nil {
			c.log.Error("failed to save match result", "match", result.MatchID, "err", err)
		}
	}()
}

func (c *Coordinator) reject(session SessionHandle, code, message string) {
	c.log.Warn("protocol error", "session", session.ID(), "code", code, "msg", message)
	c.observer.MessageRejected(code)
	session.Send(protocol.NewError(code, message))
}

func (c *Coordinator) cleanupExpiredSearches(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := c.queue.Expire(now.Add(-c.config.SearchTimeout))
	for _, p := range expired {
		c.log.Info("matchmaking timed out", "session", p.Session.ID(), "name", p.Name)
		p.Session.Send(protocol.NewError(protocol.CodeMatchmakingTimeout, "No opponent found. Please try again."))
	}
	if len(expired) > 0 {
		c.observer.QueueDepth(c.queue.Len())
	}
}

// shutdown tells every waiting and playing session that the relay is going away.
func (c *Coordinator) shutdown() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	notice := protocol.NewError(protocol.CodeShuttingDown, "Server is shutting down.")
	for _, mode := range game.Modes {
		for _, w := range c.queue.byMode[mode] {
			w.player.Session.Send(notice)
		}
	}
	for _, m := range c.registry.Matches() {
		m.Host.Session.Send(notice)
		m.Guest.Session.Send(notice)
	}
}

// QueueLen returns the number of players waiting for an opponent.
func (c *Coordinator) QueueLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queue.Len()
}

// MatchCount returns the number of active matches.
func (c *Coordinator) MatchCount() int {
	return c.registry.Count()
}

// MatchBySession returns the match a session is attached to (for testing/debug).
func (c *Coordinator) MatchBySession(id SessionID) (*Match, bool) {
	return c.registry.BySession(id)
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
