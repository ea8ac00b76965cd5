package pipeline

import (
	"slipstream/internal/receipts"
)

// Stage names one discrete step of the per-item pipeline.
type Stage string

const (
	StageHash       Stage = "hash"
	StageStore      Stage = "store"
	StagePreprocess Stage = "preprocess"
	StageRecognize  Stage = "recognize"
	StageExtract    Stage = "extract"
	StagePersist    Stage = "persist"
)

// OutcomeKind tags the terminal state of one intake item.
type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeDuplicate OutcomeKind = "duplicate"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome is the result of processing one intake item. Completed and
// Duplicate outcomes carry the catalog row; Failed outcomes carry the stage
// that broke and its error.
type Outcome struct {
	ItemID     string
	SourcePath string
	Origin     Origin
	Kind       OutcomeKind
	Hash       string
	Receipt    *receipts.Receipt
	Stage      Stage
	Err        error
}
