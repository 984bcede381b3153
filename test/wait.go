package test

import "time"

// WaitOrTimeout runs cb and reports whether it finished before
// duration elapsed, the teacher's WaitThisOrTimeout generalized for
// any cluster teardown callback (not just UnityCluster.Off).
func WaitOrTimeout(cb func(), duration time.Duration) bool {
	done := make(chan struct{})
	go func() {
		cb()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(duration):
		return false
	}
}
