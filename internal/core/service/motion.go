package service

import "time"

const (
	MOTION_WINDOW = 60 * time.Second
)

// MotionDetected reports whether a motion event created at createdAt is still
// inside the detection window. Events stamped in the future count as motion.
func MotionDetected(createdAt time.Time, now time.Time) bool {
	return now.Sub(createdAt) < MOTION_WINDOW
}

// MotionExpiresIn is the time left until a motion event stops counting as
// motion, zero when it already expired.
func MotionExpiresIn(createdAt time.Time, now time.Time) time.Duration {
	left := MOTION_WINDOW - now.Sub(createdAt)
	if left < 0 {
		return 0
	}
	return left
}
