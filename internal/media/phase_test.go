package media

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/adminconsole/internal/blob"
	"github.com/dmitrijs2005/adminconsole/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestPhaseError(t *testing.T) {
	e := &PhaseError{
		Op: "upload", Phase: MetadataPhase,
		Ref: blob.Ref{Bucket: "media", Key: "photos/a.png"}, Orphan: OrphanBlob,
		Err: errors.Join(common.ErrWrite, errors.New("denied")),
	}
	assert.ErrorIs(t, e, common.ErrWrite)
	assert.Contains(t, e.Error(), "upload: metadata phase")
	assert.Contains(t, e.Error(), "orphan blob media/photos/a.png")

	plain := &PhaseError{Op: "rename", Phase: Validating, Err: common.ErrValidation}
	assert.Equal(t, "rename: validating phase: validation error", plain.Error())
}

func TestPhaseAndOrphanStrings(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "blob", BlobPhase.String())
	assert.Equal(t, "Phase(9)", Phase(9).String())
	assert.Equal(t, "dangling record", DanglingRecord.String())
	assert.Equal(t, "Orphan(5)", Orphan(5).String())
}
