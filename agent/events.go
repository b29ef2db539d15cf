package agent

import (
	"fmt"
	"maps"
	"slices"

	"github.com/nstehr/vimy/vimy-formula/ipc"
	"github.com/nstehr/vimy/vimy-formula/model"
)

// EventKind identifies a notable change between the start and the end of a
// turn, reported to the host with the turn result.
type EventKind string

const (
	EventUnitLost        EventKind = "unit_lost"
	EventEnemyKilled     EventKind = "enemy_killed"
	EventUnitRecruited   EventKind = "unit_recruited"
	EventVillageCaptured EventKind = "village_captured"
	EventLeaderOnKeep    EventKind = "leader_on_keep"
	EventLeaderLost      EventKind = "leader_lost"
	EventEnemyLeaderDown EventKind = "enemy_leader_killed"
)

type Event struct {
	Kind   EventKind
	Detail string
}

func (e Event) wire() ipc.Event { return ipc.Event{Kind: string(e.Kind), Detail: e.Detail} }

// stateSnapshot captures the diffable parts of a world for one side.
type stateSnapshot struct {
	mine      map[string]string // id -> type
	enemies   map[string]string
	villages  map[model.Location]bool // owned by the side
	leader    string
	enemyLead map[string]bool
	onKeep    bool
}

func takeSnapshot(w *model.World, side int) stateSnapshot {
	snap := stateSnapshot{
		mine:      make(map[string]string),
		enemies:   make(map[string]string),
		villages:  make(map[model.Location]bool),
		enemyLead: make(map[string]bool),
	}
	for _, u := range w.Units {
		switch {
		case u.Side == side:
			snap.mine[u.ID] = u.Type
			if u.CanRecruit {
				snap.leader = u.ID
				snap.onKeep = w.Map.At(u.Loc()) == model.Keep
			}
		case w.IsEnemy(side, u.Side):
			snap.enemies[u.ID] = u.Type
			if u.CanRecruit {
				snap.enemyLead[u.ID] = true
			}
		}
	}
	for _, l := range w.SideVillages(side) {
		snap.villages[l] = true
	}
	return snap
}

// detectEvents compares the position at the end of a turn with the one
// at its start. Events come out grouped by kind, ids sorted within a kind.
func detectEvents(prev, cur stateSnapshot) []Event {
	var events []Event

	for _, id := range sortedKeys(prev.mine) {
		if _, ok := cur.mine[id]; !ok {
			events = append(events, Event{EventUnitLost, fmt.Sprintf("%s (%s) was killed", id, prev.mine[id])})
		}
	}
	if prev.leader != "" {
		if _, ok := cur.mine[prev.leader]; !ok {
			events = append(events, Event{EventLeaderLost, fmt.Sprintf("leader %s was killed", prev.leader)})
		}
	}

	for _, id := range sortedKeys(prev.enemies) {
		if _, ok := cur.enemies[id]; ok {
			continue
		}
		events = append(events, Event{EventEnemyKilled, fmt.Sprintf("%s (%s) was killed", id, prev.enemies[id])})
	}
	for _, id := range slices.Sorted(maps.Keys(prev.enemyLead)) {
		if _, ok := cur.enemies[id]; !ok {
			events = append(events, Event{EventEnemyLeaderDown, fmt.Sprintf("enemy leader %s was killed", id)})
		}
	}

	for _, id := range sortedKeys(cur.mine) {
		if _, ok := prev.mine[id]; !ok {
			events = append(events, Event{EventUnitRecruited, fmt.Sprintf("%s (%s) joined", id, cur.mine[id])})
		}
	}

	var captured []model.Location
	for l := range cur.villages {
		if !prev.villages[l] {
			captured = append(captured, l)
		}
	}
	slices.SortFunc(captured, func(a, b model.Location) int {
		if a.X != b.X {
			return a.X - b.X
		}
		return a.Y - b.Y
	})
	for _, l := range captured {
		events = append(events, Event{EventVillageCaptured, fmt.Sprintf("village at %s captured", l)})
	}

	if cur.onKeep && !prev.onKeep {
		events = append(events, Event{EventLeaderOnKeep, fmt.Sprintf("leader %s reached a keep", cur.leader)})
	}
	return events
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
