package model

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
)

// Snapshot is the wire form of a game position, as sent by the game host at
// the start of each AI turn.
type Snapshot struct {
	Turn     int       `json:"turn"`
	Map      []string  `json:"map"`
	Sides    []Side    `json:"sides"`
	Units    []Unit    `json:"units"`
	Villages []Village `json:"villages"`
}

type Side struct {
	Number   int      `json:"number"`
	Name     string   `json:"name,omitempty"`
	Team     string   `json:"team,omitempty"` // sides sharing a team are allies
	Gold     int      `json:"gold"`
	Recruits []string `json:"recruits,omitempty"`
}

type Attack struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Range    string   `json:"range"`
	Damage   int      `json:"damage"`
	Strikes  int      `json:"strikes"`
	Specials []string `json:"specials,omitempty"`
}

type Unit struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Name        string          `json:"name,omitempty"`
	Side        int             `json:"side"`
	X           int             `json:"x"`
	Y           int             `json:"y"`
	HP          int             `json:"hp"`
	MaxHP       int             `json:"max_hp"`
	XP          int             `json:"xp"`
	MaxXP       int             `json:"max_xp"`
	Level       int             `json:"level"`
	Moves       int             `json:"moves"`
	MaxMoves    int             `json:"max_moves"`
	AttacksLeft int             `json:"attacks_left"`
	MoveType    string          `json:"move_type"`
	Cost        int             `json:"cost"`
	CanRecruit  bool            `json:"can_recruit,omitempty"`
	Abilities   []string        `json:"abilities,omitempty"`
	Traits      []string        `json:"traits,omitempty"`
	States      map[string]bool `json:"states,omitempty"`
	Attacks     []Attack        `json:"attacks"`

	// Vars is the unit's formula-serialized variable map.
	Vars string `json:"vars,omitempty"`
	// Per-unit AI formulas; configuration may override them.
	Formula     string `json:"formula,omitempty"`
	LoopFormula string `json:"loop_formula,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

func (u *Unit) Loc() Location { return Location{X: u.X, Y: u.Y} }

func (u *Unit) TypeName() string { return u.Type }

func (u *Unit) Clone() *Unit {
	c := *u
	c.Abilities = slices.Clone(u.Abilities)
	c.Traits = slices.Clone(u.Traits)
	c.Attacks = slices.Clone(u.Attacks)
	if u.States != nil {
		c.States = make(map[string]bool, len(u.States))
		for k, v := range u.States {
			c.States[k] = v
		}
	}
	return &c
}

type Village struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Owner int `json:"owner"` // 0 when unowned
}

// World is the mutable game position the AI reasons about and acts on.
type World struct {
	Turn     int
	Map      *TerrainGrid
	Sides    []Side
	Units    []*Unit
	Villages []Village

	rng    *rand.Rand
	seed   uint64
	nextID int
}

// NewWorld builds a world from a snapshot. Combat randomness is drawn from
// a generator seeded with seed so replays are deterministic.
func NewWorld(s Snapshot, seed uint64) (*World, error) {
	grid, err := ParseTerrain(s.Map)
	if err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	w := &World{
		Turn:     s.Turn,
		Map:      grid,
		Sides:    slices.Clone(s.Sides),
		Villages: slices.Clone(s.Villages),
		seed:     seed,
		rng:      rand.New(rand.NewPCG(seed, uint64(s.Turn))),
	}
	for _, l := range grid.Find(VillageTerrain) {
		if w.villageIndex(l) < 0 {
			w.Villages = append(w.Villages, Village{X: l.X, Y: l.Y})
		}
	}
	for i := range s.Units {
		u := s.Units[i]
		if !grid.OnMap(u.Loc()) {
			return nil, fmt.Errorf("unit %s at %s is off the map", u.ID, u.Loc())
		}
		if w.UnitAt(u.Loc()) != nil {
			return nil, fmt.Errorf("unit %s at %s shares its hex", u.ID, u.Loc())
		}
		w.Units = append(w.Units, u.Clone())
	}
	return w, nil
}

// Snapshot captures the current position in wire form.
func (w *World) Snapshot() Snapshot {
	s := Snapshot{
		Turn:     w.Turn,
		Map:      w.Map.Lines(),
		Sides:    slices.Clone(w.Sides),
		Villages: slices.Clone(w.Villages),
	}
	for _, u := range w.Units {
		s.Units = append(s.Units, *u.Clone())
	}
	return s
}

// Clone deep-copies the world for hypothetical evaluation. The copy has its
// own random source.
func (w *World) Clone() *World {
	c := &World{
		Turn:     w.Turn,
		Map:      w.Map,
		Sides:    slices.Clone(w.Sides),
		Villages: slices.Clone(w.Villages),
		seed:     w.seed,
		rng:      rand.New(rand.NewPCG(w.seed, uint64(w.Turn))),
		nextID:   w.nextID,
	}
	for _, u := range w.Units {
		c.Units = append(c.Units, u.Clone())
	}
	return c
}

func (w *World) Side(n int) *Side {
	for i := range w.Sides {
		if w.Sides[i].Number == n {
			return &w.Sides[i]
		}
	}
	return nil
}

func (w *World) team(n int) string {
	if s := w.Side(n); s != nil && s.Team != "" {
		return s.Team
	}
	return strconv.Itoa(n)
}

// IsEnemy reports whether sides a and b are on different teams.
func (w *World) IsEnemy(a, b int) bool { return w.team(a) != w.team(b) }

func (w *World) UnitAt(l Location) *Unit {
	for _, u := range w.Units {
		if u.X == l.X && u.Y == l.Y {
			return u
		}
	}
	return nil
}

func (w *World) UnitByID(id string) *Unit {
	for _, u := range w.Units {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// SideUnits returns the units of side in board order.
func (w *World) SideUnits(side int) []*Unit {
	var out []*Unit
	for _, u := range w.Units {
		if u.Side == side {
			out = append(out, u)
		}
	}
	return out
}

// EnemyUnits returns the units hostile to side.
func (w *World) EnemyUnits(side int) []*Unit {
	var out []*Unit
	for _, u := range w.Units {
		if w.IsEnemy(side, u.Side) {
			out = append(out, u)
		}
	}
	return out
}

// Leader returns side's recruiting unit, or nil.
func (w *World) Leader(side int) *Unit {
	for _, u := range w.Units {
		if u.Side == side && u.CanRecruit {
			return u
		}
	}
	return nil
}

func (w *World) RemoveUnit(u *Unit) {
	w.Units = slices.DeleteFunc(w.Units, func(o *Unit) bool { return o == u })
}

func (w *World) villageIndex(l Location) int {
	return slices.IndexFunc(w.Villages, func(v Village) bool { return v.X == l.X && v.Y == l.Y })
}

func (w *World) IsVillage(l Location) bool { return w.villageIndex(l) >= 0 }

// VillageOwner returns the side owning the village at l, 0 if none.
func (w *World) VillageOwner(l Location) int {
	if i := w.villageIndex(l); i >= 0 {
		return w.Villages[i].Owner
	}
	return 0
}

// Capture transfers the village at l to side and reports whether ownership
// changed.
func (w *World) Capture(l Location, side int) bool {
	i := w.villageIndex(l)
	if i < 0 || w.Villages[i].Owner == side {
		return false
	}
	w.Villages[i].Owner = side
	return true
}

// SideVillages returns the villages owned by side.
func (w *World) SideVillages(side int) []Location {
	var out []Location
	for _, v := range w.Villages {
		if v.Owner == side {
			out = append(out, Location{X: v.X, Y: v.Y})
		}
	}
	return out
}

// NearestUnownedVillage finds the closest village not owned by side or its
// allies; ok is false when there is none.
func (w *World) NearestUnownedVillage(from Location, side int) (loc Location, ok bool) {
	best := -1
	for _, v := range w.Villages {
		if v.Owner != 0 && !w.IsEnemy(side, v.Owner) {
			continue
		}
		l := Location{X: v.X, Y: v.Y}
		if d := Distance(from, l); best < 0 || d < best {
			best, loc, ok = d, l, true
		}
	}
	return loc, ok
}

// Keeps lists the keep hexes in board order.
func (w *World) Keeps() []Location { return w.Map.Find(Keep) }

// NearestKeep returns the keep closest to from.
func (w *World) NearestKeep(from Location) (loc Location, ok bool) {
	best := -1
	for _, k := range w.Keeps() {
		if d := Distance(from, k); best < 0 || d < best {
			best, loc, ok = d, k, true
		}
	}
	return loc, ok
}

// CastleOf returns the castle hexes connected to keep, excluding the keep.
func (w *World) CastleOf(keep Location) []Location {
	if w.Map.At(keep) != Keep {
		return nil
	}
	seen := map[Location]bool{keep: true}
	queue := []Location{keep}
	var out []Location
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range cur.Adjacent() {
			if seen[n] || !w.Map.IsCastle(n) {
				continue
			}
			seen[n] = true
			out = append(out, n)
			queue = append(queue, n)
		}
	}
	return out
}

// Recruit places a new unit of type typ for side at l. The side's leader
// must stand on a keep connected to l and the side must afford the unit.
func (w *World) Recruit(side int, typ string, l Location) (*Unit, error) {
	s := w.Side(side)
	if s == nil {
		return nil, fmt.Errorf("no side %d", side)
	}
	ut, ok := LookupUnitType(typ)
	if !ok {
		return nil, fmt.Errorf("unknown unit type %q", typ)
	}
	if !slices.Contains(s.Recruits, typ) {
		return nil, fmt.Errorf("side %d cannot recruit %s", side, typ)
	}
	if s.Gold < ut.Cost {
		return nil, fmt.Errorf("side %d has %d gold, %s costs %d", side, s.Gold, typ, ut.Cost)
	}
	leader := w.Leader(side)
	if leader == nil || w.Map.At(leader.Loc()) != Keep {
		return nil, fmt.Errorf("side %d has no leader on a keep", side)
	}
	if !slices.Contains(w.CastleOf(leader.Loc()), l) {
		return nil, fmt.Errorf("%s is not a castle hex of the keep at %s", l, leader.Loc())
	}
	if w.UnitAt(l) != nil {
		return nil, fmt.Errorf("%s is occupied", l)
	}
	w.nextID++
	u := ut.Spawn(fmt.Sprintf("%s-%d-%d", typ, side, w.nextID), side, l)
	w.Units = append(w.Units, u)
	s.Gold -= ut.Cost
	return u, nil
}

// NewTurn advances the turn: every unit regains movement and attacks, units
// on villages heal and each side collects income.
func (w *World) NewTurn() {
	w.Turn++
	for _, u := range w.Units {
		u.Moves = u.MaxMoves
		u.AttacksLeft = 1
		if w.IsVillage(u.Loc()) {
			u.HP = min(u.MaxHP, u.HP+8)
		}
	}
	for i := range w.Sides {
		s := &w.Sides[i]
		s.Gold += 2 + 2*len(w.SideVillages(s.Number))
	}
}
