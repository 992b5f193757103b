package punchgen

import (
	"fmt"
	"log"
)

// verifyResults checks the retrieved statuses and active list against
// the shapes that were generated.
func verifyResults(config *Config, days []Day, statuses []StatusResponse, active []StatusResponse) error {
	log.Println("🔍 Verifying results...")

	if len(statuses) == 0 {
		return fmt.Errorf("no statuses to verify")
	}

	expected := make(map[string]string, len(days))
	for _, d := range days {
		expected[d.UserID] = d.Expected
	}

	mismatches := 0
	for _, st := range statuses {
		want, ok := expected[st.UserID]
		if !ok {
			continue
		}
		if st.Estado != want {
			mismatches++
			if config.Verbose {
				log.Printf("⚠️  Status mismatch for %s: expected %s, got %s", st.UserID, want, st.Estado)
			}
		}
	}
	if mismatches > 0 {
		log.Printf("⚠️  %d of %d statuses did not match the generated shape", mismatches, len(statuses))
	} else {
		log.Println("✅ All statuses match the generated shapes")
	}

	if err := verifyActiveConsistency(expected, active); err != nil {
		log.Printf("⚠️  Active list consistency warning: %v", err)
	} else {
		log.Println("✅ Active list consistency verified")
	}

	displayStatusBreakdown(statuses, active)

	log.Println("✅ Result verification completed")
	return nil
}

// verifyActiveConsistency checks that every user generated as still
// clocked in or paused appears in the active list, and nobody else does.
func verifyActiveConsistency(expected map[string]string, active []StatusResponse) error {
	activeSet := make(map[string]struct{}, len(active))
	for _, st := range active {
		activeSet[st.UserID] = struct{}{}
	}

	for userID, want := range expected {
		_, isActive := activeSet[userID]
		shouldBeActive := want == "trabajando" || want == "en_pausa"
		if shouldBeActive && !isActive {
			return fmt.Errorf("user %s expected in the active list (%s) but missing", userID, want)
		}
		if !shouldBeActive && isActive {
			return fmt.Errorf("user %s present in the active list but generated as %s", userID, want)
		}
	}

	return nil
}

// displayStatusBreakdown shows how the derived statuses distribute.
func displayStatusBreakdown(statuses, active []StatusResponse) {
	counts := make(map[string]int)
	for _, st := range statuses {
		counts[st.Estado]++
	}

	log.Println("🕒 Status breakdown:")
	for _, estado := range []string{"sin_iniciar", "trabajando", "en_pausa", "finalizado"} {
		if n, ok := counts[estado]; ok {
			log.Printf("   %s: %d", estado, n)
		}
	}

	if len(active) > 0 {
		topN := 10
		if len(active) < topN {
			topN = len(active)
		}
		log.Printf("👥 First %d active users:", topN)
		for i := 0; i < topN; i++ {
			st := active[i]
			log.Printf("   %d. %s (%s) - %s", i+1, st.UserName, st.UserID, st.Estado)
		}
	}
}
