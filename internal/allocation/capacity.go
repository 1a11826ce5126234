package allocation

// CapacityDivisor is the share of the roster one slot may hold per day (the 33% rule).
const CapacityDivisor = 3

// Capacity returns ceil(rosterSize/3), or 0 for an empty roster.
func Capacity(rosterSize int) int {
	if rosterSize <= 0 {
		return 0
	}
	return (rosterSize + CapacityDivisor - 1) / CapacityDivisor
}
