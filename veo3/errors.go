package veo3

import (
	"fmt"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/models"
)

// MutationExhaustedError is the terminal failure raised when the attempt
// bound is exceeded or the escalation ladder runs out. It carries the full
// audit trail so the caller can present a forensic report.
type MutationExhaustedError struct {
	SegmentIndex int
	History      models.AttemptHistory
}

func (e *MutationExhaustedError) Error() string {
	return fmt.Sprintf("segment %d: mutation strategies exhausted after %d attempts (cost %.2f USD)",
		e.SegmentIndex, len(e.History), e.History.TotalCost())
}

// TerminalError is a non-retryable provider failure (malformed request,
// quota exhausted, unclassifiable error text). History covers everything
// attempted before the terminal failure.
type TerminalError struct {
	SegmentIndex int
	Category     string
	Message      string
	History      models.AttemptHistory
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("segment %d: terminal provider failure (%s): %s", e.SegmentIndex, e.Category, e.Message)
}
