package cuid2

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEncodeTimestampBase62(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int64
		expected string
	}{
		{"Zero timestamp", 0, "000000"},
		{"One second", 1, "000001"},
		{"62 seconds", 62, "000010"},
		{"One minute", 60, "00000y"},
		{"One hour", 3600, "0000w4"},
		{"One day", 86400, "000MTY"},
		{"Unix epoch test", 1704067200, "1rK5iq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EncodeTimestampBase62(tt.seconds))
		})
	}
}

func TestNew_Format(t *testing.T) {
	id := New("syn")
	assert.Regexp(t, regexp.MustCompile(`^syn_[0-9A-Za-z]{24}$`), id)
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New("tsk")
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNew_SortsByTime(t *testing.T) {
	earlier := newAt("rev", time.Unix(1704067200, 0))
	later := newAt("rev", time.Unix(1704067201, 0))
	assert.Less(t, strings.Compare(earlier, later), 0)
}
