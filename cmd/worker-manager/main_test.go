package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSweepInterval(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
		want time.Duration
	}{
		{name: "disabled", ttl: 0, want: 0},
		{name: "negative", ttl: -time.Second, want: 0},
		{name: "short ttl floors at a second", ttl: 2 * time.Second, want: time.Second},
		{name: "quarter of ttl", ttl: 2 * time.Minute, want: 30 * time.Second},
		{name: "long ttl caps at a minute", ttl: 30 * time.Minute, want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sweepInterval(tt.ttl))
		})
	}
}
