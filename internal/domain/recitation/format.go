package recitation

import (
	"fmt"
	"math"
	"time"
)

// FormatClock formats seconds as m:ss, the way the player bar shows time.
// Negative and NaN values format as 0:00.
func FormatClock(sec float64) string {
	if math.IsNaN(sec) || sec < 0 {
		sec = 0
	}
	s := int(math.Floor(sec))
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// LengthLabel formats a unit length rounded to whole seconds as m:ss.
func LengthLabel(d time.Duration) string {
	secs := int(math.Round(d.Seconds()))
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
