// Package session holds the admin's current class selection and the buffer
// of trial edits not yet written through. The original tool kept this as
// ambient UI state; here it is one explicit struct every operation goes
// through.
package session

import (
	"errors"
	"sync"

	"fitnesstest-server-go/models"
)

// ErrUnsavedChanges is returned when switching classes would discard
// buffered edits without the caller confirming it.
var ErrUnsavedChanges = errors.New("unsaved changes pending for the current class")

// Session tracks the selected (schoolYear, classSection) pair and the
// per-slot pending trial edits for it. The buffer belongs to the selection:
// switching classes empties it without writing anything.
type Session struct {
	mu           sync.Mutex
	schoolYear   string
	classSection string
	pending      map[int]models.TrialPair
}

func New() *Session {
	return &Session{pending: map[int]models.TrialPair{}}
}

// Selection returns the current class path.
func (s *Session) Selection() (schoolYear, classSection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schoolYear, s.classSection
}

// HasUnsavedChanges reports whether any buffered edit is pending.
func (s *Session) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// SelectClass switches the selection. With edits pending it refuses unless
// discard is confirmed; confirming throws the buffer away without touching
// the prior class path. Re-selecting the current pair is a no-op.
func (s *Session) SelectClass(schoolYear, classSection string, discard bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schoolYear == schoolYear && s.classSection == classSection {
		return nil
	}
	if len(s.pending) > 0 && !discard {
		return ErrUnsavedChanges
	}
	s.pending = map[int]models.TrialPair{}
	s.schoolYear = schoolYear
	s.classSection = classSection
	return nil
}

// BufferEdit stores one student's edited trials, replacing any earlier edit
// for the slot. Values are copied so later UI mutation can't leak in.
func (s *Session) BufferEdit(slot int, trials models.TrialPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[slot] = models.TrialPair{
		Trial1: trials.Trial1.Clone(),
		Trial2: trials.Trial2.Clone(),
	}
}

// ClearEdit drops the pending edit for one slot, after a single-record save.
func (s *Session) ClearEdit(slot int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, slot)
}

// Drain returns every pending edit and empties the buffer, for save-all.
// The caller writes them through as one atomic update.
func (s *Session) Drain() (schoolYear, classSection string, edits map[int]models.TrialPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	edits = s.pending
	s.pending = map[int]models.TrialPair{}
	return s.schoolYear, s.classSection, edits
}

// Restore puts drained edits back after a failed save so the user can retry.
func (s *Session) Restore(edits map[int]models.TrialPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for slot, trials := range edits {
		if _, exists := s.pending[slot]; !exists {
			s.pending[slot] = trials
		}
	}
}
