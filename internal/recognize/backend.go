package recognize

import (
	"context"
	"time"

	"slipstream/internal/preprocess"
)

// Result carries the raw text a backend produced for one input. The text is
// never discarded downstream, even when field extraction finds nothing — it
// is the ground truth for manual correction.
type Result struct {
	EngineID string
	Text     string
	Duration time.Duration
}

// Backend turns a preprocessed image or pass-through document into raw text.
type Backend interface {
	Recognize(ctx context.Context, input preprocess.Result) (Result, error)
}
