package worker

import (
	"github.com/dandantas/linkpatrol/internal/model"
)

// Job represents a single link to be checked
type Job struct {
	Target model.LinkTarget
	Index  int // position in the submitted batch, carried through to the Result
}

// Result represents the outcome of a link check job
type Result struct {
	Outcome model.LinkCheckOutcome
	Index   int
}
