package main

import "testing"

func TestSweepAttempts(t *testing.T) {
	tests := []struct {
		in   int
		want uint
	}{
		{-3, 1},
		{-1, 1},
		{0, 1},
		{1, 1},
		{4, 4},
	}

	for _, tt := range tests {
		if got := sweepAttempts(tt.in); got != tt.want {
			t.Errorf("sweepAttempts(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
