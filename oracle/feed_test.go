package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
)

func TestFeed(t *testing.T) {
	f := NewFeed(2)
	ev := model.FlightStatusRequested{Airline: "A1", Flight: "F1", Timestamp: 1, Index: 3}

	require.NoError(t, f.FlightStatusRequested(ev))
	require.NoError(t, f.FlightStatusRequested(ev))
	assert.ErrorIs(t, f.FlightStatusRequested(ev), ErrFeedFull)

	f.Close()
	f.Close()
	assert.ErrorIs(t, f.FlightStatusRequested(ev), ErrFeedClosed)

	var got []model.FlightStatusRequested
	for e := range f.Events() {
		got = append(got, e)
	}
	assert.Equal(t, []model.FlightStatusRequested{ev, ev}, got)
}

func TestRandomStatus(t *testing.T) {
	src := NewRandomStatus(42)
	seen := map[model.StatusCode]bool{}
	for i := 0; i < 500; i++ {
		s := src.Status("o1", model.FlightStatusRequested{})
		require.True(t, s.Valid())
		require.NotEqual(t, model.StatusUnknown, s)
		seen[s] = true
	}
	assert.Len(t, seen, 5)

	assert.Equal(t, model.StatusOnTime, FixedStatus(model.StatusOnTime).Status("o1", model.FlightStatusRequested{}))
}
