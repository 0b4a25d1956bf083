package call

import "sync"

// FeedbackState tracks feedback submission for one transcript document:
// one submission may be in flight at a time, and a successful submission is
// final. Failed submissions may be retried.
type FeedbackState struct {
	mu        sync.Mutex
	inFlight  bool
	submitted bool
}

// Begin reports whether a submission may start now. It returns false when a
// submission is already in flight or feedback was already accepted.
func (f *FeedbackState) Begin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight || f.submitted {
		return false
	}
	f.inFlight = true
	return true
}

// Finish records the outcome of a submission started with Begin.
func (f *FeedbackState) Finish(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	if err == nil {
		f.submitted = true
	}
}

// Submitted reports whether feedback was accepted for this document.
func (f *FeedbackState) Submitted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}
