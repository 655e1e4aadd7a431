package services

import "fmt"

// CycleSummary is the one-line outcome report every cycle produces,
// whatever happened to individual symbols along the way.
type CycleSummary struct {
	Cycle     string `json:"cycle"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

func (s CycleSummary) String() string {
	return fmt.Sprintf("%s cycle: attempted=%d succeeded=%d skipped=%d failed=%d",
		s.Cycle, s.Attempted, s.Succeeded, s.Skipped, s.Failed)
}
