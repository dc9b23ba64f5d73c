package ingest

import "testing"

func TestNextIntentScore(t *testing.T) {
	tests := []struct {
		name    string
		current int
		exists  bool
		want    int
	}{
		{name: "new lead", current: 0, exists: false, want: InitialIntentScore},
		{name: "new lead ignores current", current: 80, exists: false, want: InitialIntentScore},
		{name: "increment", current: 10, exists: true, want: 15},
		{name: "clamped at max", current: 98, exists: true, want: MaxIntentScore},
		{name: "already max", current: MaxIntentScore, exists: true, want: MaxIntentScore},
		{name: "clamped at min", current: -50, exists: true, want: MinIntentScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextIntentScore(tt.current, tt.exists); got != tt.want {
				t.Fatalf("NextIntentScore(%d, %v) = %d, want %d", tt.current, tt.exists, got, tt.want)
			}
		})
	}
}

func TestScoreAfterSixEvents(t *testing.T) {
	score := NextIntentScore(0, false)
	for i := 0; i < 5; i++ {
		score = NextIntentScore(score, true)
	}
	if score != 35 {
		t.Fatalf("expected 35 after six events, got %d", score)
	}
}
