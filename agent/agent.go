package agent

import (
	"fmt"
	"log/slog"

	"github.com/nstehr/vimy/vimy-formula/formula"
	"github.com/nstehr/vimy/vimy-formula/ipc"
	"github.com/nstehr/vimy/vimy-formula/model"
	"github.com/nstehr/vimy/vimy-formula/rules"
)

// AI plays one side, turn after turn. Its variable store survives between
// turns; everything else is rebuilt from the position each turn.
type AI struct {
	store *ConfigStore
	side  int
	vars  *formula.Map
	// restore is a serialized store to load at the start of the next turn.
	restore string
}

func NewAI(store *ConfigStore) *AI {
	return &AI{store: store}
}

// SetSide overrides the configured side; 0 goes back to the configuration.
func (ai *AI) SetSide(n int) { ai.side = n }

func (ai *AI) Side() int {
	if ai.side != 0 {
		return ai.side
	}
	return ai.store.Current().Side
}

// RestoreVars replaces the variable store with a serialized map at the
// start of the next turn.
func (ai *AI) RestoreVars(text string) { ai.restore = text }

// Vars returns the variable store as of the last turn.
func (ai *AI) Vars() *formula.Map {
	if ai.vars == nil {
		return formula.NewMap()
	}
	return ai.vars
}

// parseVars reads a serialized variable map. Host functions such as loc()
// may appear in it, so it is parsed against the turn's table.
func parseVars(text string, table *formula.Table) (*formula.Map, error) {
	v, err := formula.Eval(text, nil, table)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return formula.NewMap(), nil
	}
	return v.AsMap()
}

func (ai *AI) loadVars(cfg *Config, s *rules.State) {
	text := ai.restore
	ai.restore = ""
	if text == "" && ai.vars == nil {
		text = cfg.Vars
	}
	if text == "" {
		if ai.vars != nil {
			s.Vars = ai.vars
		}
		return
	}
	m, err := parseVars(text, s.Table)
	if err != nil {
		rules.LogFormulaError("variable store ignored", err, "vars", text)
		if ai.vars != nil {
			s.Vars = ai.vars
		}
		return
	}
	s.Vars = m
}

// PlayTurn plays one turn on snap and reports what was done. Script
// failures are logged and skipped; the error is a host failure, in which
// case the result holds what was done before it.
func (ai *AI) PlayTurn(snap model.Snapshot) (ipc.TurnResult, error) {
	cfg := ai.store.Current()
	side := ai.Side()
	res := ipc.TurnResult{Turn: snap.Turn, Side: side, Commands: []ipc.Envelope{}}

	w, err := model.NewWorld(snap, cfg.Seed)
	if err != nil {
		return res, fmt.Errorf("load position: %w", err)
	}
	if w.Side(side) == nil {
		return res, fmt.Errorf("position has no side %d", side)
	}
	s := rules.NewState(w, side)
	s.Doctrine = *cfg.Doctrine
	ai.loadVars(cfg, s)

	before := takeSnapshot(w, side)
	t := newTurn(cfg, s)
	playErr := t.play()
	ai.vars = s.Vars

	res.Commands = append(res.Commands, t.x.commands...)
	res.Fallback = t.x.fallback
	res.State = s.World.Snapshot()
	for _, e := range detectEvents(before, takeSnapshot(s.World, side)) {
		res.Events = append(res.Events, e.wire())
	}
	if res.Vars, err = formula.MapValue(s.Vars).Serialize(); err != nil {
		slog.Warn("variable store cannot be serialized", "error", err)
	}

	slog.Info("turn played",
		"turn", snap.Turn,
		"side", side,
		"commands", len(res.Commands),
		"events", len(res.Events),
		"fallback", res.Fallback,
	)
	return res, playErr
}

// Agent owns the decision-making for a single host session.
type Agent struct {
	Conn   *ipc.Connection
	Player string
	AI     *AI
}

func New(conn *ipc.Connection, ai *AI) *Agent {
	return &Agent{Conn: conn, AI: ai}
}

// HandleHello completes the handshake so the host knows the AI is ready.
func (a *Agent) HandleHello(env ipc.Envelope) (*ipc.Envelope, error) {
	var hello ipc.HelloMessage
	if err := env.Decode(&hello); err != nil {
		return nil, err
	}

	a.Player = hello.Player
	if a.Conn != nil {
		a.Conn.Identify(hello.Player)
	}
	if hello.Side != 0 {
		a.AI.SetSide(hello.Side)
	}
	slog.Info("player identified", "player", a.Player, "side", a.AI.Side())

	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: "ok", Side: a.AI.Side()})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// HandleTurn plays the turn in the message and replies with the result.
func (a *Agent) HandleTurn(env ipc.Envelope) (*ipc.Envelope, error) {
	var msg ipc.TurnMessage
	if err := env.Decode(&msg); err != nil {
		return nil, err
	}

	slog.Info("turn received",
		"player", a.Player,
		"turn", msg.State.Turn,
		"units", len(msg.State.Units),
		"villages", len(msg.State.Villages),
	)

	if msg.Vars != "" {
		a.AI.RestoreVars(msg.Vars)
	}
	res, err := a.AI.PlayTurn(msg.State)
	if err != nil {
		return nil, fmt.Errorf("play turn %d: %w", msg.State.Turn, err)
	}

	reply, err := ipc.NewEnvelope(ipc.TypeTurnResult, res)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}
