package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Link représente un lien raccourci et ses statistiques de clics.
// Les champs analytiques ne sont modifiés que par l'enregistreur de clics.
type Link struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	Code        string     `gorm:"uniqueIndex;size:30;not null" json:"code" yaml:"code"`
	OriginalURL string     `gorm:"not null" json:"originalUrl" yaml:"originalUrl"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	ExpireAt    *time.Time `gorm:"index" json:"expireAt" yaml:"expireAt"`

	Clicks      int64    `gorm:"not null;default:0" json:"clicks" yaml:"clicks"`
	ClicksByDay Tally    `gorm:"serializer:json" json:"clicksByDay" yaml:"clicksByDay"`
	Referrers   Tally    `gorm:"serializer:json" json:"referrers" yaml:"referrers"`
	UserAgents  Tally    `gorm:"serializer:json" json:"userAgents" yaml:"userAgents"`
	ClicksLog   ClickLog `gorm:"serializer:json" json:"clicksLog" yaml:"clicksLog"`
}

// IsExpired reports whether the link's expiry is strictly before now.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpireAt != nil && l.ExpireAt.Before(now)
}

// Clone returns a deep copy so callers never share analytics slices with a store.
func (l *Link) Clone() *Link {
	if l == nil {
		return nil
	}
	c := *l
	if l.ExpireAt != nil {
		exp := *l.ExpireAt
		c.ExpireAt = &exp
	}
	c.ClicksByDay = l.ClicksByDay.Clone()
	c.Referrers = l.Referrers.Clone()
	c.UserAgents = l.UserAgents.Clone()
	c.ClicksLog = l.ClicksLog.Clone()
	return &c
}

// TallyEntry is one (key, count) pair of a Tally.
type TallyEntry struct {
	Key   string `json:"key" yaml:"key"`
	Count int64  `json:"count" yaml:"count"`
}

// Tally is a counter keyed by string that remembers first-insertion order.
// It is encoded in JSON as an object whose members keep that order.
type Tally []TallyEntry

// Inc adds one to key, appending it when first seen.
func (t *Tally) Inc(key string) {
	t.Add(key, 1)
}

// Add adds n to key, appending it when first seen.
func (t *Tally) Add(key string, n int64) {
	for i := range *t {
		if (*t)[i].Key == key {
			(*t)[i].Count += n
			return
		}
	}
	*t = append(*t, TallyEntry{Key: key, Count: n})
}

// Get returns the count for key, zero when absent.
func (t Tally) Get(key string) int64 {
	for _, e := range t {
		if e.Key == key {
			return e.Count
		}
	}
	return 0
}

// Total returns the sum of all counts.
func (t Tally) Total() int64 {
	var sum int64
	for _, e := range t {
		sum += e.Count
	}
	return sum
}

// Head returns a copy of the first n entries.
func (t Tally) Head(n int) Tally {
	if n > len(t) {
		n = len(t)
	}
	out := make(Tally, n)
	copy(out, t[:n])
	return out
}

// Map flattens the tally; ordering is lost.
func (t Tally) Map() map[string]int64 {
	m := make(map[string]int64, len(t))
	for _, e := range t {
		m[e.Key] = e.Count
	}
	return m
}

// Clone returns an independent copy.
func (t Tally) Clone() Tally {
	if t == nil {
		return nil
	}
	out := make(Tally, len(t))
	copy(out, t)
	return out
}

// MarshalJSON encodes the tally as an ordered JSON object.
func (t Tally) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", e.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object while keeping member order.
func (t *Tally) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*t = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("tally: expected JSON object, got %v", tok)
	}
	out := Tally{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("tally: expected string key, got %v", keyTok)
		}
		var count int64
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("tally: count for %q: %w", key, err)
		}
		out.Add(key, count)
	}
	*t = out
	return nil
}
