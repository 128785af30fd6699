package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorders_FansOutAndJoinsErrors(t *testing.T) {
	t.Parallel()
	a := &memRecorder{}
	b := &memRecorder{err: errors.New("disk full")}
	c := &memRecorder{}

	err := Recorders{a, nil, b, c}.RecordDelivery(Delivery{CellID: "c1"})

	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, a.all(), 1)
	assert.Len(t, b.all(), 1)
	assert.Len(t, c.all(), 1)
}
