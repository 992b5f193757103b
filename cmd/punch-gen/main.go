package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/jornada/fichaje/internal/punchgen"
)

// Default configuration constants.
const (
	defaultNumUsers   = 500
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numUsers   = flag.Int("users", defaultNumUsers, "Number of synthetic users to generate")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated punches (default: generated_punches_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for run output (default: punchgen_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		punchgen.ShowHelp()
		return
	}

	// Setup logging
	if err := punchgen.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	// Create run configuration
	config := &punchgen.Config{
		BaseURL:    *baseURL,
		NumUsers:   *numUsers,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	// Run the generator
	if err := punchgen.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Run failed: " + err.Error() + "\n")
		return
	}
}
