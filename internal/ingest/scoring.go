package ingest

const (
	InitialIntentScore   = 10
	IntentScoreIncrement = 5
	MaxIntentScore       = 100
	MinIntentScore       = 0
)

// NextIntentScore is the score a lead holds after one more event.
// The repository applies the same rule in a single upsert statement.
func NextIntentScore(current int, exists bool) int {
	if !exists {
		return InitialIntentScore
	}
	next := current + IntentScoreIncrement
	if next > MaxIntentScore {
		return MaxIntentScore
	}
	if next < MinIntentScore {
		return MinIntentScore
	}
	return next
}
