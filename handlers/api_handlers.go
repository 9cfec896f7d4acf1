package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fitnesstest-server-go/db"
	"fitnesstest-server-go/models"
	"fitnesstest-server-go/parsers"
	"fitnesstest-server-go/report"
	"fitnesstest-server-go/scoring"
	"fitnesstest-server-go/session"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	zipContentType  = "application/zip"
	csvContentType  = "text/csv"

	changePollTimeout = 25 * time.Second
)

// APIHandler holds the dependencies for API handlers
type APIHandler struct {
	Service *db.RedisService
	Session *session.Session
	Watcher *db.ClassWatcher
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(service *db.RedisService, sess *session.Session, watcher *db.ClassWatcher) *APIHandler {
	return &APIHandler{
		Service: service,
		Session: sess,
		Watcher: watcher,
	}
}

// --- Lookup Handlers ---

// GetSchoolYears handles GET /api/schoolyears
func (h *APIHandler) GetSchoolYears(c *gin.Context) {
	years, err := h.Service.ListSchoolYears()
	if err != nil {
		log.Printf("Error in GetSchoolYears handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve school years"})
		return
	}
	c.JSON(http.StatusOK, years)
}

// GetGrades handles GET /api/grades
func (h *APIHandler) GetGrades(c *gin.Context) {
	grades, err := h.Service.ListGrades()
	if err != nil {
		log.Printf("Error in GetGrades handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve grades"})
		return
	}
	c.JSON(http.StatusOK, grades)
}

// AddSchoolYear handles POST /api/schoolyears (for opening the next year
// before any roster is imported into it)
func (h *APIHandler) AddSchoolYear(c *gin.Context) {
	var req struct {
		SchoolYear string `json:"schoolYear"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.SchoolYear == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "schoolYear is required"})
		return
	}
	if err := h.Service.AddSchoolYear(req.SchoolYear); err != nil {
		log.Printf("Error in AddSchoolYear handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add school year"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"schoolYear": req.SchoolYear})
}

// --- Import Handler ---

// ImportRoster handles POST /api/import/roster: a multipart CSV upload plus
// the target school year. Incomplete rows are dropped quietly; the response
// is the batch summary the user sees.
func (h *APIHandler) ImportRoster(c *gin.Context) {
	schoolYear := c.PostForm("schoolYear")
	if schoolYear == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'schoolYear' in form data"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		log.Printf("Error getting form file: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error retrieving uploaded file: " + err.Error()})
		return
	}
	defer file.Close()
	log.Printf("Received roster upload: %s for school year %s", header.Filename, schoolYear)

	records, dropped, err := parsers.ParseRoster(file)
	if err != nil {
		log.Printf("Error parsing roster %s: %v", header.Filename, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse roster: " + err.Error()})
		return
	}

	groups, order := parsers.GroupBySection(records)
	for _, classSection := range order {
		if err := h.Service.WriteClassRoster(schoolYear, classSection, groups[classSection]); err != nil {
			log.Printf("Error storing roster for %s/%s: %v", schoolYear, classSection, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store imported records"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Import successful",
		"imported":   len(records),
		"dropped":    dropped,
		"classes":    order,
		"schoolYear": schoolYear,
	})
}

// --- Record Handlers ---

// GetClassRecords handles GET /api/years/:year/classes/:class/records
func (h *APIHandler) GetClassRecords(c *gin.Context) {
	entries, err := h.Service.SnapshotRecords(c.Param("year"), c.Param("class"))
	if err != nil {
		log.Printf("Error in GetClassRecords handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve class records"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// scoredEntry is the live-score view of one student.
type scoredEntry struct {
	Slot   int                `json:"slot"`
	EnName string             `json:"enName"`
	Scores scoring.ScoreSheet `json:"scores"`
}

// GetClassScores handles GET /api/years/:year/classes/:class/scores.
// Scores are recomputed from the stored measurements on every call.
func (h *APIHandler) GetClassScores(c *gin.Context) {
	entries, err := h.Service.SnapshotRecords(c.Param("year"), c.Param("class"))
	if err != nil {
		log.Printf("Error in GetClassScores handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve class records"})
		return
	}
	scored := make([]scoredEntry, 0, len(entries))
	for _, entry := range entries {
		scored = append(scored, scoredEntry{
			Slot:   entry.Slot,
			EnName: entry.Record.EnName,
			Scores: scoring.Sheet(entry.Record),
		})
	}
	c.JSON(http.StatusOK, scored)
}

// UpsertStudentRecord handles PUT /api/years/:year/classes/:class/records/:slot:
// a full overwrite of one slot, for adding a latecomer or correcting roster
// fields after import. Trials not supplied start zero-filled.
func (h *APIHandler) UpsertStudentRecord(c *gin.Context) {
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil || slot < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Slot must be a positive integer"})
		return
	}

	var rec models.StudentRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	rec.ClassSection = c.Param("class")
	if rec.EnName == "" || rec.JpName == "" || rec.FirstName == "" ||
		rec.Gender == "" || rec.Grade == "" || rec.TeacherName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All roster fields are required"})
		return
	}
	rec.Trial1 = models.NormalizeTrial(rec.Trial1)
	rec.Trial2 = models.NormalizeTrial(rec.Trial2)

	year := c.Param("year")
	if err := h.Service.WriteRecord(year, rec.ClassSection, slot, rec); err != nil {
		log.Printf("Error in UpsertStudentRecord handler for %s/%s/%d: %v", year, rec.ClassSection, slot, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store record"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Saved", "slot": slot})
}

// UpdateStudentTrials handles PUT /api/years/:year/classes/:class/records/:slot/trials
func (h *APIHandler) UpdateStudentTrials(c *gin.Context) {
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil || slot < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Slot must be a positive integer"})
		return
	}

	var body models.TrialPair
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if body.Trial1 == nil || body.Trial2 == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Both trial1 and trial2 are required"})
		return
	}
	trials := models.TrialPair{
		Trial1: models.NormalizeTrial(body.Trial1),
		Trial2: models.NormalizeTrial(body.Trial2),
	}

	year, class := c.Param("year"), c.Param("class")
	if err := h.Service.UpdateTrials(year, class, slot, trials); err != nil {
		log.Printf("Error in UpdateStudentTrials handler for %s/%s/%d: %v", year, class, slot, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save trial data"})
		return
	}

	// A direct save supersedes any buffered edit for the same student.
	if sy, sc := h.Session.Selection(); sy == year && sc == class {
		h.Session.ClearEdit(slot)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Saved", "slot": slot})
}

// --- Session Handlers ---

// GetSession handles GET /api/session
func (h *APIHandler) GetSession(c *gin.Context) {
	year, class := h.Session.Selection()
	c.JSON(http.StatusOK, gin.H{
		"schoolYear":        year,
		"classSection":      class,
		"hasUnsavedChanges": h.Session.HasUnsavedChanges(),
	})
}

type selectRequest struct {
	SchoolYear   string `json:"schoolYear"`
	ClassSection string `json:"classSection"`
	Discard      bool   `json:"discard"`
}

// SelectClass handles POST /api/session/select. Refuses with 409 while
// edits are pending unless discard is set; on a real switch the old change
// subscription is detached before the new one attaches.
func (h *APIHandler) SelectClass(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.SchoolYear == "" || req.ClassSection == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "schoolYear and classSection are required"})
		return
	}

	if err := h.Session.SelectClass(req.SchoolYear, req.ClassSection, req.Discard); err != nil {
		if errors.Is(err, session.ErrUnsavedChanges) {
			c.JSON(http.StatusConflict, gin.H{"error": "Unsaved changes pending; set discard to switch anyway"})
			return
		}
		log.Printf("Error in SelectClass handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to switch class"})
		return
	}

	// Re-subscribe only on a real switch; the watched path is the truth.
	if watched := h.Watcher.Current(); watched.SchoolYear != req.SchoolYear || watched.ClassSection != req.ClassSection {
		if err := h.Watcher.Watch(req.SchoolYear, req.ClassSection); err != nil {
			log.Printf("Error watching %s/%s: %v", req.SchoolYear, req.ClassSection, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to subscribe to class changes"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"schoolYear":   req.SchoolYear,
		"classSection": req.ClassSection,
	})
}

type bufferEditRequest struct {
	Slot   int                      `json:"slot"`
	Trial1 models.TrialMeasurements `json:"trial1"`
	Trial2 models.TrialMeasurements `json:"trial2"`
}

// BufferEdit handles POST /api/session/edits
func (h *APIHandler) BufferEdit(c *gin.Context) {
	var req bufferEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.Slot < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Slot must be a positive integer"})
		return
	}
	if _, class := h.Session.Selection(); class == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No class selected"})
		return
	}
	h.Session.BufferEdit(req.Slot, models.TrialPair{
		Trial1: models.NormalizeTrial(req.Trial1),
		Trial2: models.NormalizeTrial(req.Trial2),
	})
	c.JSON(http.StatusOK, gin.H{"hasUnsavedChanges": true})
}

// SaveAll handles POST /api/session/save-all: every buffered edit of the
// selected class goes to Redis as one atomic multi-path update. On failure
// the buffer is restored so nothing is silently lost.
func (h *APIHandler) SaveAll(c *gin.Context) {
	year, class, edits := h.Session.Drain()
	if class == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No class selected"})
		return
	}
	if len(edits) == 0 {
		c.JSON(http.StatusOK, gin.H{"saved": 0})
		return
	}
	if err := h.Service.SaveAllTrials(year, class, edits); err != nil {
		h.Session.Restore(edits)
		log.Printf("Error in SaveAll handler for %s/%s: %v", year, class, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save changes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": len(edits)})
}

// WaitForChange handles GET /api/session/changes: a long poll that resolves
// when the watched class path changes, telling the browser to re-fetch.
func (h *APIHandler) WaitForChange(c *gin.Context) {
	select {
	case ev := <-h.Watcher.Events():
		c.JSON(http.StatusOK, ev)
	case <-time.After(changePollTimeout):
		c.Status(http.StatusNoContent)
	case <-c.Request.Context().Done():
		c.Status(http.StatusNoContent)
	}
}

// --- Export Handlers ---

// ExportArchive handles GET /api/years/:year/classes/:class/export/archive:
// one workbook per student, zipped.
func (h *APIHandler) ExportArchive(c *gin.Context) {
	year, class := c.Param("year"), c.Param("class")
	entries, ok := h.exportEntries(c, year, class)
	if !ok {
		return
	}
	data, err := report.BuildClassArchive(entries)
	if err != nil {
		log.Printf("Error building archive for %s/%s: %v", year, class, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Report archive generation failed; please retry"})
		return
	}
	sendFile(c, report.ArchiveFileName(class), zipContentType, data)
}

// ExportWorkbook handles GET /api/years/:year/classes/:class/export/workbook:
// the whole class as sheets of one workbook.
func (h *APIHandler) ExportWorkbook(c *gin.Context) {
	year, class := c.Param("year"), c.Param("class")
	entries, ok := h.exportEntries(c, year, class)
	if !ok {
		return
	}
	f, err := report.BuildClassWorkbook(entries)
	if err != nil {
		log.Printf("Error building workbook for %s/%s: %v", year, class, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Report workbook generation failed; please retry"})
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Error closing workbook: %v", err)
		}
	}()
	buf, err := f.WriteToBuffer()
	if err != nil {
		log.Printf("Error encoding workbook for %s/%s: %v", year, class, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Report workbook generation failed; please retry"})
		return
	}
	sendFile(c, report.WorkbookFileName(class), xlsxContentType, buf.Bytes())
}

// ExportRoster handles GET /api/years/:year/classes/:class/export/roster:
// the CSV re-export in the import column order.
func (h *APIHandler) ExportRoster(c *gin.Context) {
	year, class := c.Param("year"), c.Param("class")
	entries, ok := h.exportEntries(c, year, class)
	if !ok {
		return
	}
	records := make([]models.StudentRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, entry.Record)
	}
	var buf bytes.Buffer
	if err := parsers.WriteRoster(&buf, records); err != nil {
		log.Printf("Error writing roster export for %s/%s: %v", year, class, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Roster export failed; please retry"})
		return
	}
	sendFile(c, fmt.Sprintf("%s_roster.csv", class), csvContentType, buf.Bytes())
}

// exportEntries loads the class snapshot shared by the three exports,
// answering 404 for an empty class.
func (h *APIHandler) exportEntries(c *gin.Context, year, class string) ([]models.RosterEntry, bool) {
	entries, err := h.Service.SnapshotRecords(year, class)
	if err != nil {
		log.Printf("Error loading records for export %s/%s: %v", year, class, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve class records"})
		return nil, false
	}
	if len(entries) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No records found for this class"})
		return nil, false
	}
	return entries, true
}

func sendFile(c *gin.Context, name, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, data)
}

// --- Ping Handler ---
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}
