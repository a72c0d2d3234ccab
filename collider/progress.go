package collider

import "fmt"

// FormatProgress renders a ProgressFunc callback's arguments the way the
// CLI front-end prints them: a percentage and a tera-hashes/second rate.
// Split out from Engine so that callers can format consistently without
// duplicating the arithmetic.
func FormatProgress(fraction float64, teraHashesPerSecond float64) string {
	return fmt.Sprintf("%.1f%% complete, %.3f TH/s", fraction*100, teraHashesPerSecond)
}
