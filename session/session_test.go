package session

import (
	"errors"
	"testing"

	"fitnesstest-server-go/models"
)

func editPair(component string, value float64) models.TrialPair {
	t1 := models.NewTrialMeasurements()
	t1[component] = value
	return models.TrialPair{Trial1: t1, Trial2: models.NewTrialMeasurements()}
}

func TestSelectClassRefusesWithPendingEdits(t *testing.T) {
	s := New()
	if err := s.SelectClass("2026", "G3A", false); err != nil {
		t.Fatalf("initial selection failed: %v", err)
	}
	s.BufferEdit(1, editPair(models.SitUps, 18))

	err := s.SelectClass("2026", "G3B", false)
	if !errors.Is(err, ErrUnsavedChanges) {
		t.Fatalf("expected ErrUnsavedChanges, got %v", err)
	}
	if year, class := s.Selection(); class != "G3A" || year != "2026" {
		t.Fatalf("selection moved despite refusal: %s/%s", year, class)
	}
}

func TestSelectClassDiscardClearsBufferWithoutWriting(t *testing.T) {
	s := New()
	if err := s.SelectClass("2026", "G3A", false); err != nil {
		t.Fatalf("initial selection failed: %v", err)
	}
	s.BufferEdit(1, editPair(models.SitUps, 18))
	s.BufferEdit(2, editPair(models.LongJump, 150))

	if err := s.SelectClass("2026", "G3B", true); err != nil {
		t.Fatalf("discard selection failed: %v", err)
	}
	if s.HasUnsavedChanges() {
		t.Fatal("discard left the buffer dirty")
	}

	// Nothing carried over: draining the new selection yields no edits for
	// the prior class path.
	year, class, edits := s.Drain()
	if year != "2026" || class != "G3B" {
		t.Fatalf("drain targets wrong class: %s/%s", year, class)
	}
	if len(edits) != 0 {
		t.Fatalf("discarded edits leaked into new selection: %v", edits)
	}
}

func TestReselectingSamePairKeepsEdits(t *testing.T) {
	s := New()
	if err := s.SelectClass("2026", "G1A", false); err != nil {
		t.Fatalf("initial selection failed: %v", err)
	}
	s.BufferEdit(3, editPair(models.SideSteps, 40))
	if err := s.SelectClass("2026", "G1A", false); err != nil {
		t.Fatalf("re-selecting the same class must not error: %v", err)
	}
	if !s.HasUnsavedChanges() {
		t.Fatal("re-selection dropped pending edits")
	}
}

func TestDrainEmptiesBuffer(t *testing.T) {
	s := New()
	if err := s.SelectClass("2026", "G2B", false); err != nil {
		t.Fatalf("selection failed: %v", err)
	}
	s.BufferEdit(1, editPair(models.SoftballThrow, 22))
	s.BufferEdit(1, editPair(models.SoftballThrow, 25)) // replaces the first

	_, _, edits := s.Drain()
	if len(edits) != 1 {
		t.Fatalf("expected 1 coalesced edit, got %d", len(edits))
	}
	if edits[1].Trial1[models.SoftballThrow] != 25 {
		t.Fatalf("later edit did not win: %v", edits[1].Trial1)
	}
	if s.HasUnsavedChanges() {
		t.Fatal("drain left the buffer dirty")
	}
}

func TestRestoreAfterFailedSave(t *testing.T) {
	s := New()
	if err := s.SelectClass("2026", "G2B", false); err != nil {
		t.Fatalf("selection failed: %v", err)
	}
	s.BufferEdit(1, editPair(models.SitUps, 20))
	_, _, edits := s.Drain()

	s.Restore(edits)
	if !s.HasUnsavedChanges() {
		t.Fatal("restore did not repopulate the buffer")
	}
}

func TestBufferEditCopiesTrials(t *testing.T) {
	s := New()
	if err := s.SelectClass("2026", "G4C", false); err != nil {
		t.Fatalf("selection failed: %v", err)
	}
	pair := editPair(models.GripL, 15)
	s.BufferEdit(1, pair)
	pair.Trial1[models.GripL] = 99

	_, _, edits := s.Drain()
	if edits[1].Trial1[models.GripL] != 15 {
		t.Fatalf("buffered edit aliases caller memory: %v", edits[1].Trial1)
	}
}
