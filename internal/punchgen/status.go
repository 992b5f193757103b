package punchgen

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// retrieveStatuses retrieves the clock state of every generated user
// concurrently.
func retrieveStatuses(ctx context.Context, config *Config, days []Day, stats *Stats) ([]StatusResponse, error) {
	log.Printf("🕒 Retrieving statuses for %d users with %d workers...", len(days), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Results storage
	statuses := make([]StatusResponse, len(days))
	var (
		retrieved int64
		failed    int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					userID := days[index].UserID
					st, err := retrieveSingleStatus(ctx, client, config.BaseURL, userID)

					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to get status for %s: %v", userID, err)
						}
					} else {
						statuses[index] = st
						atomic.AddInt64(&retrieved, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&retrieved) + atomic.LoadInt64(&failed)
						ret := atomic.LoadInt64(&retrieved)
						fail := atomic.LoadInt64(&failed)

						log.Printf("🕒 Statuses: %d/%d retrieved (success: %d, failed: %d)",
							total, len(days), ret, fail)
					}
				}
			}
		}()
	}

	// Send indices to workers
	go func() {
		defer close(indexChan)
		for i := range days {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Filter out empty entries (failed retrievals)
	validStatuses := make([]StatusResponse, 0, len(statuses))
	for _, st := range statuses {
		if st.UserID != "" { // Empty UserID indicates failed retrieval
			validStatuses = append(validStatuses, st)
		}
	}

	// Update stats
	stats.StatusesRetrieved = len(validStatuses)

	log.Printf(`✅ Status retrieval completed:
   Retrieved: %d
   Failed: %d
`, len(validStatuses), int(atomic.LoadInt64(&failed)))

	return validStatuses, nil
}

// retrieveSingleStatus retrieves the status of a single user.
func retrieveSingleStatus(ctx context.Context, client *HTTPClient, baseURL, userID string) (StatusResponse, error) {
	statusURL := fmt.Sprintf("%s/api/status?user=%s", baseURL, url.QueryEscape(userID))

	resp, err := client.Get(ctx, statusURL)
	if err != nil {
		return StatusResponse{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return StatusResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return StatusResponse{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var st StatusResponse
	if err := unmarshalJSON(body, &st); err != nil {
		return StatusResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return st, nil
}

// getActiveUsers retrieves the users the service considers working or
// paused right now.
func getActiveUsers(ctx context.Context, config *Config, stats *Stats) ([]StatusResponse, error) {
	log.Printf("👥 Getting active users...")

	client := newHTTPClient(config.Timeout)
	activeURL := config.BaseURL + "/api/active"

	resp, err := client.Get(ctx, activeURL)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var active []StatusResponse
	if err := unmarshalJSON(body, &active); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.ActiveUsers = len(active)
	log.Printf("✅ Retrieved %d active users", len(active))

	return active, nil
}
