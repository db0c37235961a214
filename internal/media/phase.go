package media

import (
	"fmt"

	"github.com/dmitrijs2005/adminconsole/internal/blob"
)

// Phase is the step an asset mutation is in.
type Phase int

const (
	Idle Phase = iota
	Validating
	BlobPhase
	MetadataPhase
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case BlobPhase:
		return "blob"
	case MetadataPhase:
		return "metadata"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Orphan names the inconsistency a failed mutation leaves behind.
type Orphan int

const (
	// NoOrphan: blob and record agree.
	NoOrphan Orphan = iota
	// OrphanBlob: the blob was written but no record points at it.
	OrphanBlob
	// DanglingRecord: the blob was deleted but its record survived.
	DanglingRecord
)

func (o Orphan) String() string {
	switch o {
	case NoOrphan:
		return "none"
	case OrphanBlob:
		return "orphan blob"
	case DanglingRecord:
		return "dangling record"
	default:
		return fmt.Sprintf("Orphan(%d)", int(o))
	}
}

// PhaseError reports which phase of which operation failed and what it
// left behind. Err wraps one of the common operation errors.
type PhaseError struct {
	Op     string
	Phase  Phase
	Ref    blob.Ref
	Orphan Orphan
	Err    error
}

func (e *PhaseError) Error() string {
	if e.Orphan != NoOrphan {
		return fmt.Sprintf("%s: %s phase: %v (%s %s)", e.Op, e.Phase, e.Err, e.Orphan, e.Ref)
	}
	return fmt.Sprintf("%s: %s phase: %v", e.Op, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
