package probe

import (
	"time"

	"github.com/teambition/rrule-go"
)

// ParseSchedule parses a maintenance RRULE (e.g. "FREQ=WEEKLY") anchored at
// now. Empty string means no schedule.
func ParseSchedule(ruleStr string) (*rrule.RRule, error) {
	if ruleStr == "" {
		return nil, nil
	}
	start := time.Now().UTC().Format("20060102T150405Z")
	return rrule.StrToRRule("DTSTART=" + start + ";" + ruleStr)
}

// StartSchedule fires callback at each recurrence of the rule until quit is
// closed. An empty or invalid rule starts nothing.
func StartSchedule(ruleStr string, quit <-chan struct{}, callback func()) {
	rr, err := ParseSchedule(ruleStr)
	if err != nil || rr == nil {
		return
	}
	go func() {
		for {
			next := rr.After(time.Now(), false)
			if next.IsZero() {
				return
			}
			select {
			case <-time.After(time.Until(next)):
				callback()
			case <-quit:
				return
			}
		}
	}()
}
