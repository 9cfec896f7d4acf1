package models

import "testing"

func TestClassSectionSlicing(t *testing.T) {
	if got := GradePrefix("G3B"); got != "G3" {
		t.Fatalf("GradePrefix(G3B) = %q", got)
	}
	if got := SectionLetter("G3B"); got != "B" {
		t.Fatalf("SectionLetter(G3B) = %q", got)
	}
	if got := GradePrefix("X"); got != "X" {
		t.Fatalf("GradePrefix(X) = %q", got)
	}
	if got := SectionLetter(""); got != "" {
		t.Fatalf("SectionLetter(empty) = %q", got)
	}
}

func TestSlotKeyRoundTrip(t *testing.T) {
	for _, slot := range []int{1, 9, 10, 12, 120} {
		if got := SlotIndex(SlotKey(slot)); got != slot {
			t.Fatalf("SlotIndex(SlotKey(%d)) = %d", slot, got)
		}
	}
	if got := SlotIndex("garbage"); got != 0 {
		t.Fatalf("SlotIndex(garbage) = %d, want 0", got)
	}
}

func TestNewTrialMeasurementsZeroFilled(t *testing.T) {
	trial := NewTrialMeasurements()
	if len(trial) != len(ComponentKeys) {
		t.Fatalf("expected %d keys, got %d", len(ComponentKeys), len(trial))
	}
	for _, k := range ComponentKeys {
		if trial[k] != 0 {
			t.Fatalf("key %s not zero: %v", k, trial[k])
		}
	}
}

func TestNormalizeTrial(t *testing.T) {
	got := NormalizeTrial(TrialMeasurements{
		SitUps:    17,
		"invalid": 99,
	})
	if got[SitUps] != 17 {
		t.Fatalf("known key lost: %v", got)
	}
	if _, ok := got["invalid"]; ok {
		t.Fatalf("unknown key kept: %v", got)
	}
	if got[LongJump] != 0 || len(got) != len(ComponentKeys) {
		t.Fatalf("missing keys not zero-filled: %v", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := NewTrialMeasurements()
	a[GripL] = 11
	b := a.Clone()
	b[GripL] = 22
	if a[GripL] != 11 {
		t.Fatalf("clone aliases original: %v", a[GripL])
	}
}
