package main

import "testing"

func TestShouldSuppressTTYQueries(t *testing.T) {
	tests := []struct {
		args  []string
		robot bool
		want  bool
	}{
		{nil, false, false},
		{nil, true, true},
		{[]string{"--data", "timelines.json"}, false, false},
		{[]string{"--robot-network"}, false, true},
		{[]string{"-robot-related=m4"}, false, true},
		{[]string{"--export-svg", "cold-war", "-o", "out.svg"}, false, true},
		{[]string{"--version"}, false, true},
		{[]string{"--dump-seed"}, false, true},
		// A value that happens to look like a flag name is not a flag.
		{[]string{"--data", "robot-network"}, false, false},
	}
	for _, tt := range tests {
		if got := shouldSuppressTTYQueries(tt.args, tt.robot); got != tt.want {
			t.Errorf("shouldSuppressTTYQueries(%q, %v) = %v, want %v", tt.args, tt.robot, got, tt.want)
		}
	}
}
