package provisions

import "time"

// SelectCurrent keeps the entitlements that have started on or before today.
// Only the calendar day of today matters, read in today's location.
func SelectCurrent(entitlements []Entitlement, today time.Time) []Entitlement {
	out := make([]Entitlement, 0, len(entitlements))
	for _, e := range entitlements {
		if e.DateStart != nil && e.DateStart.OnOrBefore(today) {
			out = append(out, e)
		}
	}
	return out
}
