package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"fitnesstest-server-go/db"
	"fitnesstest-server-go/handlers"
	"fitnesstest-server-go/session"
)

// Key used to check whether the lookup tables have been seeded yet.
const gradesKeyForCheck = "grade"

func main() {
	// .env is optional; environment variables win either way.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Initialize Redis Client
	redisClient := db.InitializeRedisClient()

	// Create Redis Service
	redisService := db.NewRedisService(redisClient)

	// Seed the school-year and grade lookup lists on first boot
	checkAndSeedLookups(redisClient, redisService)

	// Session state and the class change watcher
	sess := session.New()
	watcher := db.NewClassWatcher(redisService.SubscribeClassChanges)
	defer watcher.Close()

	// Create API Handler (injecting the service)
	apiHandler := handlers.NewAPIHandler(redisService, sess, watcher)

	// Initialize Gin router
	router := gin.Default()
	// The only client is the browser page, usually served from another origin.
	router.Use(cors.Default())

	// Setup API routes
	api := router.Group("/api")
	{
		// Lookup lists
		api.GET("/schoolyears", apiHandler.GetSchoolYears)
		api.POST("/schoolyears", apiHandler.AddSchoolYear)
		api.GET("/grades", apiHandler.GetGrades)

		// Roster import
		api.POST("/import/roster", apiHandler.ImportRoster)

		// Records and live scores within a class
		api.GET("/years/:year/classes/:class/records", apiHandler.GetClassRecords)
		api.GET("/years/:year/classes/:class/scores", apiHandler.GetClassScores)
		api.PUT("/years/:year/classes/:class/records/:slot", apiHandler.UpsertStudentRecord)
		api.PUT("/years/:year/classes/:class/records/:slot/trials", apiHandler.UpdateStudentTrials)

		// Report exports
		api.GET("/years/:year/classes/:class/export/archive", apiHandler.ExportArchive)
		api.GET("/years/:year/classes/:class/export/workbook", apiHandler.ExportWorkbook)
		api.GET("/years/:year/classes/:class/export/roster", apiHandler.ExportRoster)

		// Selection and the edit buffer
		api.GET("/session", apiHandler.GetSession)
		api.POST("/session/select", apiHandler.SelectClass)
		api.POST("/session/edits", apiHandler.BufferEdit)
		api.POST("/session/save-all", apiHandler.SaveAll)
		api.GET("/session/changes", apiHandler.WaitForChange)

		// Ping route
		api.GET("/ping", handlers.PingHandler)
	}

	// Start the server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting server on port :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

// checkAndSeedLookups populates the year and grade lists when the store is
// empty, so the selection dropdowns work on a fresh database.
func checkAndSeedLookups(client *redis.Client, service *db.RedisService) {
	ctx := context.Background()
	count, err := client.SCard(ctx, gradesKeyForCheck).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("Warning: could not check for existing lookup data (key: %s): %v. Skipping seed.", gradesKeyForCheck, err)
		return
	}

	if count == 0 {
		schoolYear := currentSchoolYear()
		log.Printf("No lookup data found (key: '%s'). Seeding grades and school year %s...", gradesKeyForCheck, schoolYear)
		if err := service.SeedLookupTables(schoolYear); err != nil {
			log.Printf("Error seeding lookup tables: %v", err)
		}
	} else {
		log.Printf("Found existing lookup data (key: '%s', count: %d). Skipping seed.", gradesKeyForCheck, count)
	}
}

// currentSchoolYear assumes the Japanese school calendar: the year that
// started on the most recent April 1st.
func currentSchoolYear() string {
	now := time.Now()
	year := now.Year()
	if now.Month() < time.April {
		year--
	}
	return strconv.Itoa(year)
}
