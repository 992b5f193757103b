// Package punchgen generates synthetic punch days and drives them
// through a running fichaje service, verifying the derived statuses.
package punchgen

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/jornada/fichaje/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "punchgen_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the punch generator tool.
func ShowHelp() {
	os.Stdout.WriteString(`Fichaje Punch Generator
=======================

A concurrent tool for driving synthetic attendance days through a
running fichaje service.

Usage:
  go run cmd/punch-gen/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -users int
        Number of synthetic users to generate (default 500)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated punches (default: generated_punches_TIMESTAMP.json)
  -log string
        Log file for run output (default: punchgen_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Run with default settings
  go run cmd/punch-gen/main.go

  # Run with custom parameters
  go run cmd/punch-gen/main.go -users 2000 -workers 16 -url http://localhost:8080

  # Run with verbose output
  go run cmd/punch-gen/main.go -verbose -users 100

  # Run with custom log file
  go run cmd/punch-gen/main.go -users 1000 -log my_run.log
`)
}
