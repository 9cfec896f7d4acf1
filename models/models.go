package models

import (
	"strconv"
	"strings"
)

// Gender of a student, as it appears in the import file.
type Gender string

const (
	Boy  Gender = "Boy"
	Girl Gender = "Girl"
)

// Component keys for the ten measured values. aveGrip, gripstrL and gripstrR
// together make up the single grip-strength component; the other seven are
// scored on their own.
const (
	ShuttleRuns    = "20mshuttleruns"
	Sprint50m      = "50msprint"
	AveGrip        = "aveGrip"
	GripL          = "gripstrL"
	GripR          = "gripstrR"
	LongJump       = "longjump"
	SeatedToeTouch = "seatedtoetouch"
	SideSteps      = "sidesteps"
	SitUps         = "situps"
	SoftballThrow  = "softballthrowing"
)

// ComponentKeys lists every measurement key a trial carries, in storage order.
var ComponentKeys = []string{
	ShuttleRuns,
	Sprint50m,
	AveGrip,
	GripL,
	GripR,
	LongJump,
	SeatedToeTouch,
	SideSteps,
	SitUps,
	SoftballThrow,
}

// TrialMeasurements maps a component key to the measured value for one
// attempt. All keys are always present; untested components stay at 0.
type TrialMeasurements map[string]float64

// NewTrialMeasurements returns a zero-filled trial.
func NewTrialMeasurements() TrialMeasurements {
	t := make(TrialMeasurements, len(ComponentKeys))
	for _, k := range ComponentKeys {
		t[k] = 0
	}
	return t
}

// NormalizeTrial maps arbitrary client input onto the fixed key set: known
// keys keep their value, missing keys become 0, unknown keys are dropped.
func NormalizeTrial(t TrialMeasurements) TrialMeasurements {
	n := NewTrialMeasurements()
	for _, k := range ComponentKeys {
		if v, ok := t[k]; ok {
			n[k] = v
		}
	}
	return n
}

// Clone returns an independent copy of the trial.
func (t TrialMeasurements) Clone() TrialMeasurements {
	c := make(TrialMeasurements, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

// StudentRecord is one student's roster entry plus both measurement trials.
// Identity is (schoolYear, classSection, slot index); the record itself only
// carries the class section, the year and slot live in the storage key.
type StudentRecord struct {
	EnName       string            `json:"enName"`
	JpName       string            `json:"jpName"`
	FirstName    string            `json:"firstName"`
	Gender       Gender            `json:"gender"`
	Grade        string            `json:"grade"`
	ClassSection string            `json:"classSection"`
	TeacherName  string            `json:"teacherName"`
	Trial1       TrialMeasurements `json:"trial1"`
	Trial2       TrialMeasurements `json:"trial2"`
}

// TrialPair carries both trials of one student through partial updates and
// the session edit buffer.
type TrialPair struct {
	Trial1 TrialMeasurements `json:"trial1"`
	Trial2 TrialMeasurements `json:"trial2"`
}

// RosterEntry pairs a record with its slot index within the class, the
// ordering handle everything downstream (display, reports, re-export) uses.
type RosterEntry struct {
	Slot   int           `json:"slot"`
	Record StudentRecord `json:"record"`
}

// GradePrefix returns the grade part of a class section, e.g. "G3" from
// "G3B". The section letter is always the final character.
func GradePrefix(classSection string) string {
	if len(classSection) < 2 {
		return classSection
	}
	return classSection[:len(classSection)-1]
}

// SectionLetter returns the trailing section letter of a class section.
func SectionLetter(classSection string) string {
	if classSection == "" {
		return ""
	}
	return classSection[len(classSection)-1:]
}

// SlotKey builds the storage key suffix for a 1-based slot index.
func SlotKey(slot int) string {
	return "student" + strconv.Itoa(slot)
}

// SlotIndex extracts the numeric suffix from a slot key ("student12" -> 12).
// Keys without a numeric suffix sort first (0).
func SlotIndex(slotKey string) int {
	digits := strings.TrimLeft(slotKey, "abcdefghijklmnopqrstuvwxyz")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
