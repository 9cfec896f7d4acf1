package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"

	"github.com/go-redis/redis/v8"

	"fitnesstest-server-go/models"
)

const (
	schoolYearsKey = "schoolyear" // Set: enumerable school years
	gradesKey      = "grade"      // Set: enumerable grade levels (G1..G6)
	changePrefix   = "changes/"   // Pub/sub channel prefix per class path
)

// RedisService handles operations with the Redis database. Records live at
// {schoolYear}/{classSection}/student{N} as hashes, with a member set at
// {schoolYear}/{classSection} providing the slot-key listing.
type RedisService struct {
	Client *redis.Client
	Ctx    context.Context // Base context
}

// NewRedisService creates a new RedisService instance
func NewRedisService(client *redis.Client) *RedisService {
	return &RedisService{
		Client: client,
		Ctx:    context.Background(), // Use a background context as base
	}
}

// Helper to generate the member-set key for a class
func getClassSetKey(schoolYear, classSection string) string {
	return schoolYear + "/" + classSection
}

// Helper to generate a student record key
func getRecordKey(schoolYear, classSection, slotKey string) string {
	return schoolYear + "/" + classSection + "/" + slotKey
}

// ChangeChannel names the pub/sub channel carrying change notifications for
// one class path.
func ChangeChannel(schoolYear, classSection string) string {
	return changePrefix + schoolYear + "/" + classSection
}

// --- Lookup Table Operations ---

// AddSchoolYear registers a school year in the enumerable list.
func (s *RedisService) AddSchoolYear(schoolYear string) error {
	if err := s.Client.SAdd(s.Ctx, schoolYearsKey, schoolYear).Err(); err != nil {
		log.Printf("Error adding school year %s: %v", schoolYear, err)
		return fmt.Errorf("failed to add school year to Redis: %w", err)
	}
	return nil
}

// ListSchoolYears returns the registered school years, newest-safe sorted.
func (s *RedisService) ListSchoolYears() ([]string, error) {
	years, err := s.Client.SMembers(s.Ctx, schoolYearsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		log.Printf("Error getting school years: %v", err)
		return nil, fmt.Errorf("failed to get school years from Redis: %w", err)
	}
	sort.Strings(years)
	return years, nil
}

// ListGrades returns the registered grade levels.
func (s *RedisService) ListGrades() ([]string, error) {
	grades, err := s.Client.SMembers(s.Ctx, gradesKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		log.Printf("Error getting grades: %v", err)
		return nil, fmt.Errorf("failed to get grades from Redis: %w", err)
	}
	sort.Strings(grades)
	return grades, nil
}

// SeedLookupTables populates the year/grade lists when empty.
func (s *RedisService) SeedLookupTables(schoolYear string) error {
	pipe := s.Client.Pipeline()
	pipe.SAdd(s.Ctx, schoolYearsKey, schoolYear)
	pipe.SAdd(s.Ctx, gradesKey, "G1", "G2", "G3", "G4", "G5", "G6")
	if _, err := pipe.Exec(s.Ctx); err != nil {
		log.Printf("Error seeding lookup tables: %v", err)
		return fmt.Errorf("failed to seed lookup tables: %w", err)
	}
	return nil
}

// --- Record Operations ---

// encodeRecord flattens a record into hash fields. Trials are stored as
// nested JSON objects under their own fields so partial updates can touch
// them without rewriting the roster fields.
func encodeRecord(rec models.StudentRecord) (map[string]interface{}, error) {
	trial1, err := json.Marshal(rec.Trial1)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trial1: %w", err)
	}
	trial2, err := json.Marshal(rec.Trial2)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trial2: %w", err)
	}
	return map[string]interface{}{
		"enname":    rec.EnName,
		"jpname":    rec.JpName,
		"firstname": rec.FirstName,
		"gender":    string(rec.Gender),
		"grade":     rec.Grade,
		"class":     rec.ClassSection,
		"teacher":   rec.TeacherName,
		"trial1":    string(trial1),
		"trial2":    string(trial2),
	}, nil
}

func decodeRecord(data map[string]string) (models.StudentRecord, error) {
	rec := models.StudentRecord{
		EnName:       data["enname"],
		JpName:       data["jpname"],
		FirstName:    data["firstname"],
		Gender:       models.Gender(data["gender"]),
		Grade:        data["grade"],
		ClassSection: data["class"],
		TeacherName:  data["teacher"],
		Trial1:       models.NewTrialMeasurements(),
		Trial2:       models.NewTrialMeasurements(),
	}
	if raw := data["trial1"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Trial1); err != nil {
			return rec, fmt.Errorf("failed to decode trial1: %w", err)
		}
	}
	if raw := data["trial2"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Trial2); err != nil {
			return rec, fmt.Errorf("failed to decode trial2: %w", err)
		}
	}
	return rec, nil
}

// WriteRecord stores a full record at its slot, overwriting whatever is
// there. Used at import time with zero-filled trials.
func (s *RedisService) WriteRecord(schoolYear, classSection string, slot int, rec models.StudentRecord) error {
	fields, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	slotKey := models.SlotKey(slot)

	pipe := s.Client.Pipeline()
	pipe.SAdd(s.Ctx, schoolYearsKey, schoolYear)
	pipe.SAdd(s.Ctx, getClassSetKey(schoolYear, classSection), slotKey)
	pipe.HSet(s.Ctx, getRecordKey(schoolYear, classSection, slotKey), fields)
	if _, err := pipe.Exec(s.Ctx); err != nil {
		log.Printf("Error writing record %s/%s/%s: %v", schoolYear, classSection, slotKey, err)
		return fmt.Errorf("failed to write record to Redis: %w", err)
	}
	s.publishChange(schoolYear, classSection)
	return nil
}

// WriteClassRoster bulk-writes a freshly imported class, slots assigned in
// slice order starting at 1. One pipeline, one change notification.
func (s *RedisService) WriteClassRoster(schoolYear, classSection string, records []models.StudentRecord) error {
	pipe := s.Client.Pipeline()
	pipe.SAdd(s.Ctx, schoolYearsKey, schoolYear)
	for i, rec := range records {
		fields, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		slotKey := models.SlotKey(i + 1)
		pipe.SAdd(s.Ctx, getClassSetKey(schoolYear, classSection), slotKey)
		pipe.HSet(s.Ctx, getRecordKey(schoolYear, classSection, slotKey), fields)
	}
	if _, err := pipe.Exec(s.Ctx); err != nil {
		log.Printf("Error writing roster for %s/%s: %v", schoolYear, classSection, err)
		return fmt.Errorf("failed to write class roster to Redis: %w", err)
	}
	s.publishChange(schoolYear, classSection)
	return nil
}

// SnapshotRecords reads every record of a class, ordered by the numeric
// suffix of the slot key so student12 follows student9.
func (s *RedisService) SnapshotRecords(schoolYear, classSection string) ([]models.RosterEntry, error) {
	slotKeys, err := s.Client.SMembers(s.Ctx, getClassSetKey(schoolYear, classSection)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []models.RosterEntry{}, nil
		}
		log.Printf("Error getting slot keys for %s/%s: %v", schoolYear, classSection, err)
		return nil, fmt.Errorf("failed to get slot keys from Redis for %s/%s: %w", schoolYear, classSection, err)
	}
	SortSlotKeys(slotKeys)

	entries := make([]models.RosterEntry, 0, len(slotKeys))
	for _, slotKey := range slotKeys {
		data, err := s.Client.HGetAll(s.Ctx, getRecordKey(schoolYear, classSection, slotKey)).Result()
		if err != nil {
			log.Printf("Error fetching record %s/%s/%s: %v", schoolYear, classSection, slotKey, err)
			continue // Skip this record if details can't be fetched
		}
		if len(data) == 0 {
			continue // Stale set member
		}
		rec, err := decodeRecord(data)
		if err != nil {
			log.Printf("Error decoding record %s/%s/%s: %v", schoolYear, classSection, slotKey, err)
			continue
		}
		entries = append(entries, models.RosterEntry{Slot: models.SlotIndex(slotKey), Record: rec})
	}
	return entries, nil
}

// UpdateTrials overwrites only the trial sub-objects of one record.
func (s *RedisService) UpdateTrials(schoolYear, classSection string, slot int, trials models.TrialPair) error {
	fields, err := trialFields(trials)
	if err != nil {
		return err
	}
	key := getRecordKey(schoolYear, classSection, models.SlotKey(slot))
	if err := s.Client.HSet(s.Ctx, key, fields).Err(); err != nil {
		log.Printf("Error updating trials at %s: %v", key, err)
		return fmt.Errorf("failed to update trials in Redis: %w", err)
	}
	s.publishChange(schoolYear, classSection)
	return nil
}

// SaveAllTrials applies every pending edit of a class as one atomic
// multi-path update.
func (s *RedisService) SaveAllTrials(schoolYear, classSection string, edits map[int]models.TrialPair) error {
	if len(edits) == 0 {
		return nil
	}
	pipe := s.Client.TxPipeline()
	for slot, trials := range edits {
		fields, err := trialFields(trials)
		if err != nil {
			return err
		}
		pipe.HSet(s.Ctx, getRecordKey(schoolYear, classSection, models.SlotKey(slot)), fields)
	}
	if _, err := pipe.Exec(s.Ctx); err != nil {
		log.Printf("Error saving all trials for %s/%s: %v", schoolYear, classSection, err)
		return fmt.Errorf("failed to save trials to Redis: %w", err)
	}
	s.publishChange(schoolYear, classSection)
	return nil
}

func trialFields(trials models.TrialPair) (map[string]interface{}, error) {
	trial1, err := json.Marshal(trials.Trial1)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trial1: %w", err)
	}
	trial2, err := json.Marshal(trials.Trial2)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trial2: %w", err)
	}
	return map[string]interface{}{
		"trial1": string(trial1),
		"trial2": string(trial2),
	}, nil
}

// publishChange notifies subscribers of the class path. Failures are logged
// only; the write itself already succeeded.
func (s *RedisService) publishChange(schoolYear, classSection string) {
	if err := s.Client.Publish(s.Ctx, ChangeChannel(schoolYear, classSection), "update").Err(); err != nil {
		log.Printf("Error publishing change for %s/%s: %v", schoolYear, classSection, err)
	}
}

// SortSlotKeys orders slot keys by their numeric suffix, keeping 1..9..12 in
// sequence where a lexical sort would not.
func SortSlotKeys(slotKeys []string) {
	sort.Slice(slotKeys, func(i, j int) bool {
		return models.SlotIndex(slotKeys[i]) < models.SlotIndex(slotKeys[j])
	})
}

// --- Utility ---

// InitializeRedisClient creates and tests a Redis client connection.
// REDIS_ADDR, REDIS_PASSWORD and REDIS_DB override the local defaults.
func InitializeRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	dbNum := 0
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			log.Fatalf("Invalid REDIS_DB value %q: %v", raw, err)
		}
		dbNum = n
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       dbNum,
	})

	// Ping Redis to check connection
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Could not connect to Redis at %s: %v", addr, err)
	}

	log.Printf("Successfully connected to Redis at %s (db %d)", addr, dbNum)
	return rdb
}
