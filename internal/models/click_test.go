package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isNewestFirst(l ClickLog) bool {
	for i := 1; i < len(l); i++ {
		if l[i].At.After(l[i-1].At) {
			return false
		}
	}
	return true
}

func TestClickLog_PushKeepsNewestFirstAndBound(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var log ClickLog
	for i := 0; i < 250; i++ {
		log = log.Push(Click{At: base.Add(time.Duration(i) * time.Second), IPAddress: fmt.Sprint(i)}, MaxClickLogEntries)
	}

	require.Len(t, log, MaxClickLogEntries)
	assert.True(t, isNewestFirst(log))
	assert.Equal(t, "249", log[0].IPAddress)
	assert.Equal(t, "50", log[len(log)-1].IPAddress)
}

func TestClickLog_PushOutOfOrder(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	log := ClickLog{}.
		Push(Click{At: base.Add(2 * time.Second), IPAddress: "2"}, 3).
		Push(Click{At: base, IPAddress: "0"}, 3).
		Push(Click{At: base.Add(time.Second), IPAddress: "1"}, 3)

	require.Len(t, log, 3)
	assert.Equal(t, []string{"2", "1", "0"}, []string{log[0].IPAddress, log[1].IPAddress, log[2].IPAddress})

	// older than everything retained at capacity: dropped
	log = log.Push(Click{At: base.Add(-time.Hour), IPAddress: "old"}, 3)
	assert.Equal(t, "0", log[2].IPAddress)

	// newer: the oldest falls off
	log = log.Push(Click{At: base.Add(time.Hour), IPAddress: "new"}, 3)
	assert.Equal(t, []string{"new", "2", "1"}, []string{log[0].IPAddress, log[1].IPAddress, log[2].IPAddress})
}

func TestClickLog_HeadCopies(t *testing.T) {
	log := ClickLog{{IPAddress: "a"}, {IPAddress: "b"}}
	head := log.Head(1)
	head[0].IPAddress = "z"

	assert.Equal(t, "a", log[0].IPAddress)
	assert.Len(t, log.Head(5), 2)
	assert.Nil(t, ClickLog(nil).Clone())
}
