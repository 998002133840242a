package models

import (
	"sort"
	"time"
)

// MaxClickLogEntries bounds the per-link click log; older entries are dropped
// but remain counted in Clicks and ClicksByDay.
const MaxClickLogEntries = 200

// Click is one entry of a link's click log.
type Click struct {
	At        time.Time `json:"ts" yaml:"ts"`
	Referrer  string    `json:"ref" yaml:"ref"`
	UserAgent string    `json:"ua" yaml:"ua"`
	IPAddress string    `json:"ip" yaml:"ip"`
}

// ClickLog holds click entries newest first.
type ClickLog []Click

// Push inserts c at its position in newest-first order and keeps at most limit entries.
// An entry older than everything retained at full capacity is dropped.
func (l ClickLog) Push(c Click, limit int) ClickLog {
	// first index whose timestamp is not after c
	i := sort.Search(len(l), func(i int) bool { return !l[i].At.After(c.At) })
	if i >= limit {
		return l
	}
	l = append(l, Click{})
	copy(l[i+1:], l[i:])
	l[i] = c
	if len(l) > limit {
		l = l[:limit]
	}
	return l
}

// Head returns a copy of the n most recent entries.
func (l ClickLog) Head(n int) ClickLog {
	if n > len(l) {
		n = len(l)
	}
	out := make(ClickLog, n)
	copy(out, l[:n])
	return out
}

// Clone returns an independent copy.
func (l ClickLog) Clone() ClickLog {
	if l == nil {
		return nil
	}
	out := make(ClickLog, len(l))
	copy(out, l)
	return out
}

// ClickEvent represents a raw click event intended to be passed through channels.
// This lightweight struct is used for asynchronous processing between goroutines.
type ClickEvent struct {
	Code      string    // The short code that was resolved
	Timestamp time.Time // When the click occurred
	Referrer  string    // Referer header, empty when absent
	UserAgent string    // Browser/client information
	IPAddress string    // User's IP address
}
