package ipc

// Command types reported in a TurnResult. Positions are where the unit
// actually ended up, which may differ from what the formula asked for.
const (
	TypeMove     = "move"
	TypeAttack   = "attack"
	TypeRecruit  = "recruit"
	TypeUnitVars = "unit_vars"
)

type MoveCommand struct {
	UnitID string `json:"unit_id"`
	FromX  int    `json:"from_x"`
	FromY  int    `json:"from_y"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

type AttackCommand struct {
	UnitID   string `json:"unit_id"`
	TargetID string `json:"target_id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Weapon   int    `json:"weapon"`
	// Outcome of the exchange; a dead unit has 0 hitpoints.
	AttackerHP int `json:"attacker_hp"`
	DefenderHP int `json:"defender_hp"`
}

type RecruitCommand struct {
	UnitID string `json:"unit_id"`
	Type   string `json:"type"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// UnitVarsCommand carries a unit's new formula-serialized variable map.
type UnitVarsCommand struct {
	UnitID string `json:"unit_id"`
	Vars   string `json:"vars"`
}
