package game

import "fmt"

// DeathLines builds the liquidation screen copy for a finished run.
func DeathLines(s *State, src Source) []string {
	seconds := int(s.ElapsedMs / 1000)
	bucket := min(3, seconds/15)
	lines := []string{
		Pick(src, shortDeathMessages),
		fmt.Sprintf("%d seconds: %s", seconds, timeDeathMessages[bucket]),
	}
	if s.LeverageIndex >= 3 {
		lines = append(lines, Pick(src, leverageDeathMessages))
	}
	return append(lines, Pick(src, egoDeathMessages))
}
