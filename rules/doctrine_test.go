package rules

import "testing"

func TestLerp(t *testing.T) {
	tests := []struct {
		min, max int
		t        float64
		want     int
	}{
		{0, 100, 0.0, 0},
		{0, 100, 1.0, 100},
		{0, 100, 0.5, 50},
		{30, 0, 0.5, 15},
		{20, 60, 0.25, 30},
		{5, 25, 0.33, 12},
	}
	for _, tt := range tests {
		got := lerp(tt.min, tt.max, tt.t)
		if got != tt.want {
			t.Errorf("lerp(%d, %d, %f) = %d, want %d", tt.min, tt.max, tt.t, got, tt.want)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, min, max, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-0.5, 0, 1, 0},
		{1.5, 0, 1, 1},
		{0, 0, 1, 0},
		{1, 0, 1, 1},
	}
	for _, tt := range tests {
		got := clamp(tt.v, tt.min, tt.max)
		if got != tt.want {
			t.Errorf("clamp(%f, %f, %f) = %f, want %f", tt.v, tt.min, tt.max, got, tt.want)
		}
	}
	if got := clampInt(9, 1, 6); got != 6 {
		t.Errorf("clampInt(9, 1, 6) = %d", got)
	}
}

func TestDefaultDoctrine(t *testing.T) {
	d := DefaultDoctrine()
	if d.Name != "Balanced" {
		t.Errorf("DefaultDoctrine().Name = %q, want Balanced", d.Name)
	}
	for name, w := range map[string]float64{
		"Aggression":      d.Aggression,
		"VillagePriority": d.VillagePriority,
		"Caution":         d.Caution,
		"RecruitPriority": d.RecruitPriority,
		"ScoutWeight":     d.ScoutWeight,
	} {
		if w != 0.5 {
			t.Errorf("DefaultDoctrine().%s = %f, want 0.5", name, w)
		}
	}
	if d.SupportRange != 2 {
		t.Errorf("DefaultDoctrine().SupportRange = %d, want 2", d.SupportRange)
	}
}

func TestValidate(t *testing.T) {
	d := Doctrine{
		Aggression:      -0.5,
		VillagePriority: 1.5,
		Caution:         2,
		RecruitPriority: 0.3,
		ScoutWeight:     -1,
		SupportRange:    0,
	}
	d.Validate()

	if d.Aggression != 0 {
		t.Errorf("Aggression = %f, want 0 (clamped)", d.Aggression)
	}
	if d.VillagePriority != 1 {
		t.Errorf("VillagePriority = %f, want 1 (clamped)", d.VillagePriority)
	}
	if d.Caution != 1 {
		t.Errorf("Caution = %f, want 1 (clamped)", d.Caution)
	}
	if d.RecruitPriority != 0.3 {
		t.Errorf("RecruitPriority = %f, want 0.3", d.RecruitPriority)
	}
	if d.ScoutWeight != 0 {
		t.Errorf("ScoutWeight = %f, want 0 (clamped)", d.ScoutWeight)
	}
	if d.SupportRange != 1 {
		t.Errorf("SupportRange = %d, want 1 (clamped)", d.SupportRange)
	}

	d2 := Doctrine{SupportRange: 100}
	d2.Validate()
	if d2.SupportRange != 6 {
		t.Errorf("SupportRange = %d, want 6 (clamped)", d2.SupportRange)
	}
}
