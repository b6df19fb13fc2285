package input

import "time"

// Clock returns request timestamps in milliseconds.
type Clock func() uint32

// SinceClock counts milliseconds from start. The value wraps with the 32-bit
// protocol field.
func SinceClock(start time.Time) Clock {
	return func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	}
}
