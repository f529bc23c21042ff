package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	usagedomain "github.com/elevenplus/tutor/internal/usage/domain"
)

func TestStreak(t *testing.T) {
	now := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)
	day := func(offset int) string {
		return usagedomain.Day(now.AddDate(0, 0, offset))
	}

	tests := []struct {
		name string
		days []string
		want int
	}{
		{name: "no activity", days: nil, want: 0},
		{name: "today only", days: []string{day(0)}, want: 1},
		{name: "three day run", days: []string{day(0), day(-1), day(-2)}, want: 3},
		{name: "gap breaks run", days: []string{day(0), day(-2), day(-3)}, want: 1},
		{name: "today blank keeps yesterday run", days: []string{day(-1), day(-2)}, want: 2},
		{name: "stale activity", days: []string{day(-5), day(-6)}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active := make(map[string]struct{}, len(tt.days))
			for _, d := range tt.days {
				active[d] = struct{}{}
			}
			assert.Equal(t, tt.want, streak(active, now))
		})
	}
}
