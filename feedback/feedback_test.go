package feedback_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scottcarroll/rir/feedback"
)

func TestCallSlotMonomorphic(t *testing.T) {
	s := feedback.NewCallSlot()
	_, ok := s.Monomorphic()
	require.False(t, ok)

	s.Record(1)
	id, ok := s.Monomorphic()
	require.True(t, ok)
	require.Equal(t, feedback.CalleeID(1), id)

	s.Record(1) // idempotent
	_, ok = s.Monomorphic()
	require.True(t, ok)

	s.Record(2)
	_, ok = s.Monomorphic()
	require.False(t, ok)
}

func TestCallSlotOverflow(t *testing.T) {
	s := feedback.NewCallSlot()
	for i := 0; i < feedback.CallRingSize; i++ {
		s.Record(feedback.CalleeID(i))
	}
	require.False(t, s.Overflow())
	s.Record(feedback.CalleeID(999))
	require.True(t, s.Overflow())
}

func TestTypeSlotMonotone(t *testing.T) {
	s := feedback.NewTypeSlot()
	require.False(t, s.NeverObject())
	s.Observe(feedback.TypeObservation{Scalar: true})
	require.True(t, s.NeverObject())
	s.Observe(feedback.TypeObservation{Object: true})
	require.False(t, s.NeverObject())
	// monotone: the Scalar bit set by the first observation must survive.
	require.True(t, s.Bitset().Scalar)
	require.Equal(t, uint32(2), s.Count())
}
