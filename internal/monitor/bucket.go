package monitor

import "time"

// BucketTime floors t onto the shared bucket grid so concurrent monitors of
// the same token collapse onto one history row per bucket.
func BucketTime(t time.Time, bucketSeconds int64) time.Time {
	if bucketSeconds <= 0 {
		bucketSeconds = 1
	}
	unix := t.Unix()
	return time.Unix((unix/bucketSeconds)*bucketSeconds, 0).UTC()
}
