package punchgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jornada/fichaje/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete punch generation run.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting fichaje punch generation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("users", config.NumUsers),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate punch days
	days, err := generateDays(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("day generation failed: %w", err)
	}

	// Step 3: Submit punches concurrently
	if err := submitDays(ctx, config, days, stats); err != nil {
		return fmt.Errorf("punch submission failed: %w", err)
	}

	// Step 4: Wait for the live feed fan-out to settle
	logger.Get().Info(ctx, "waiting for punches to be processed")
	time.Sleep(ProcessingDelay)

	// Step 5: Retrieve statuses concurrently
	statuses, err := retrieveStatuses(ctx, config, days, stats)
	if err != nil {
		return fmt.Errorf("status retrieval failed: %w", err)
	}

	// Step 6: Get the active user list
	active, err := getActiveUsers(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("active list retrieval failed: %w", err)
	}

	// Step 7: Verify results
	if err := verifyResults(config, days, statuses, active); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 8: Save punch days to file
	if err := saveDaysToFile(ctx, config, days); err != nil {
		logger.Get().Warn(ctx, "failed to save punch days to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "run completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveDaysToFile saves the generated punch days to a JSON file.
func saveDaysToFile(ctx context.Context, config *Config, days []Day) error {
	if len(days) == 0 {
		return fmt.Errorf("no punch days to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_punches_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write days to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, day := range days {
		jsonData, err := marshalJSON(day)
		if err != nil {
			return fmt.Errorf("failed to marshal day %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write day %d: %w", i, err)
		}

		// Add comma except for last day
		if i < len(days)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "punch days saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, punchesPerSecond float64

	if stats.PunchesSubmitted > 0 {
		successRate = float64(stats.PunchesSuccessful) / float64(stats.PunchesSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		punchesPerSecond = float64(stats.PunchesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("daysGenerated", stats.DaysGenerated),
		logger.Int("punchesGenerated", stats.PunchesGenerated),
		logger.Int("punchesSubmitted", stats.PunchesSubmitted),
		logger.Int("punchesSuccessful", stats.PunchesSuccessful),
		logger.Int("punchesDuplicate", stats.PunchesDuplicate),
		logger.Int("punchesFailed", stats.PunchesFailed),
		logger.Int("statusesRetrieved", stats.StatusesRetrieved),
		logger.Int("activeUsers", stats.ActiveUsers),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("punchesPerSecond", punchesPerSecond))
}
