package core

import "time"

// QuotaState tracks direct requests for one requester in the current window.
type QuotaState struct {
	WindowStart time.Time
	Count       int
}
