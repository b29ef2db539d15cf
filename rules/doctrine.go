package rules

import "math"

// Doctrine is a high-level posture for the built-in candidate actions.
// Weights are 0.0–1.0; the compiler maps them to concrete scores and
// thresholds in generated formulas.
type Doctrine struct {
	Name            string  `json:"name" yaml:"name"`
	Rationale       string  `json:"rationale" yaml:"rationale"`
	Aggression      float64 `json:"aggression" yaml:"aggression"`
	VillagePriority float64 `json:"village_priority" yaml:"village_priority"`
	Caution         float64 `json:"caution" yaml:"caution"`
	RecruitPriority float64 `json:"recruit_priority" yaml:"recruit_priority"`
	ScoutWeight     float64 `json:"scout_weight" yaml:"scout_weight"`
	// SupportRange is how close a healthy unit moves to a wounded friend.
	SupportRange int `json:"support_range" yaml:"support_range"`
}

// DefaultDoctrine returns a balanced baseline doctrine.
func DefaultDoctrine() Doctrine {
	return Doctrine{
		Name:            "Balanced",
		Rationale:       "Default balanced strategy",
		Aggression:      0.5,
		VillagePriority: 0.5,
		Caution:         0.5,
		RecruitPriority: 0.5,
		ScoutWeight:     0.5,
		SupportRange:    2,
	}
}

// Validate clamps all weights to their valid ranges.
func (d *Doctrine) Validate() {
	d.Aggression = clamp(d.Aggression, 0, 1)
	d.VillagePriority = clamp(d.VillagePriority, 0, 1)
	d.Caution = clamp(d.Caution, 0, 1)
	d.RecruitPriority = clamp(d.RecruitPriority, 0, 1)
	d.ScoutWeight = clamp(d.ScoutWeight, 0, 1)
	d.SupportRange = clampInt(d.SupportRange, 1, 6)
}

// clampInt restricts v to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// lerp linearly interpolates between min and max by t (0–1), returning an int.
func lerp(min, max int, t float64) int {
	return min + int(math.Round(float64(max-min)*t))
}

// clamp restricts v to [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
