package rules

import (
	"strings"

	"github.com/nstehr/vimy/vimy-formula/model"
)

// typed is a generic constraint for any model type with a TypeName accessor.
type typed interface {
	TypeName() string
}

// containsType returns true if any item's TypeName matches t (case-insensitive).
func containsType[T typed](items []T, t string) bool {
	for _, item := range items {
		if strings.EqualFold(item.TypeName(), t) {
			return true
		}
	}
	return false
}

// countType counts items whose TypeName matches t (case-insensitive).
func countType[T typed](items []T, t string) int {
	n := 0
	for _, item := range items {
		if strings.EqualFold(item.TypeName(), t) {
			n++
		}
	}
	return n
}

func containsAnyType[T typed](items []T, types []string) bool {
	for _, t := range types {
		if containsType(items, t) {
			return true
		}
	}
	return false
}

func countAnyType[T typed](items []T, types []string) int {
	n := 0
	for _, item := range items {
		for _, t := range types {
			if strings.EqualFold(item.TypeName(), t) {
				n++
				break
			}
		}
	}
	return n
}

// Unit roles.
const (
	RoleLeader = "leader"
	RoleScout  = "scout"
	RoleRanged = "ranged"
	RoleMelee  = "melee"
)

// scoutMoves is the movement from which a unit is counted as a scout.
const scoutMoves = 7

// RoleOf classifies a unit for doctrine formulas and stage conditions.
func RoleOf(u *model.Unit) string {
	if u.CanRecruit {
		return RoleLeader
	}
	if u.MaxMoves >= scoutMoves {
		return RoleScout
	}
	melee, ranged := 0, 0
	for _, a := range u.Attacks {
		dmg := a.Damage * a.Strikes
		if a.Range == "ranged" {
			ranged = max(ranged, dmg)
		} else {
			melee = max(melee, dmg)
		}
	}
	if ranged > 0 && ranged >= melee {
		return RoleRanged
	}
	return RoleMelee
}
