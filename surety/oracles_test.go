package surety

import (
	"strings"
	"sync/atomic"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterOracle(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig(), WithIndexSource(fixedIndexes(7, 7)))

	below := new(uint256.Int).Sub(Units(1), uint256.NewInt(1))
	_, err := e.RegisterOracle("o1", below)
	assert.ErrorIs(t, err, ErrInsufficientFee)
	_, err = e.GetMyIndexes("o1")
	assert.ErrorIs(t, err, ErrNotRegistered)

	indexes, err := e.RegisterOracle("o1", Units(1))
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{7, 7, 7}, indexes, "duplicates are allowed by default")

	got, err := e.GetMyIndexes("o1")
	require.NoError(t, err)
	assert.Equal(t, indexes, got)

	_, err = e.RegisterOracle("o1", Units(1))
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	p, err := e.Participant("o1")
	require.NoError(t, err)
	assert.True(t, p.IsOracle)
	assert.False(t, p.IsAirline)

	oracles, err := e.Oracles()
	require.NoError(t, err)
	assert.Len(t, oracles, 1)
}

func TestRegisterOracleDistinctIndexes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DistinctIndexes = true
	e, _ := newTestEngine(t, cfg, WithIndexSource(fixedIndexes(7, 7)))

	indexes, err := e.RegisterOracle("o1", Units(1))
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{7, 8, 9}, indexes)

	cfg.IndexRange = 3
	e, _ = newTestEngine(t, cfg, WithIndexSource(fixedIndexes(2, 0)))
	indexes, err = e.RegisterOracle("o1", Units(1))
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{2, 0, 1}, indexes, "fallback wraps around the range")
}

func TestRegisterOracleHashIndexes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DistinctIndexes = true
	e, _ := newTestEngine(t, cfg, WithIndexSource(NewHashIndexSource(StaticEntropy([]byte("seed")))))

	for _, o := range []string{"o1", "o2", "o3", "o4", "o5"} {
		indexes, err := e.RegisterOracle(o, Units(1))
		require.NoError(t, err)
		for _, i := range indexes {
			assert.Less(t, i, cfg.IndexRange)
		}
		assert.NotEqual(t, indexes[0], indexes[1])
		assert.NotEqual(t, indexes[0], indexes[2])
		assert.NotEqual(t, indexes[1], indexes[2])
	}
}

func TestRequestFlightStatus(t *testing.T) {
	var draws atomic.Int32
	src := indexFunc(func(subject string, _ uint8) (uint8, error) {
		if strings.HasPrefix(subject, "request/") {
			return uint8(3 + draws.Add(1)), nil
		}
		return 7, nil
	})
	notifier := &recordingNotifier{}
	e, _ := newTestEngine(t, DefaultConfig(), WithIndexSource(src), WithNotifier(notifier))

	_, err := e.RequestFlightStatus("p1", "A9", "ND1309", 1000)
	assert.ErrorIs(t, err, ErrNotAnAirline)
	_, err = e.RequestFlightStatus("p1", owner, "", 1000)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = e.StatusRequest(owner, "ND1309", 1000)
	assert.ErrorIs(t, err, ErrUnknownRequest)

	req, err := e.RequestFlightStatus("p1", owner, "ND1309", 1000)
	require.NoError(t, err)
	assert.True(t, req.IsOpen)
	assert.Equal(t, uint8(4), req.Index)
	assert.Equal(t, "p1", req.RequestedBy)

	again, err := e.RequestFlightStatus("p2", owner, "ND1309", 1000)
	require.NoError(t, err)
	assert.Equal(t, req.Index, again.Index, "an open request keeps its index")
	assert.Equal(t, "p1", again.RequestedBy)

	events := notifier.Events()
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, owner, ev.Airline)
		assert.Equal(t, "ND1309", ev.Flight)
		assert.Equal(t, int64(1000), ev.Timestamp)
		assert.Equal(t, uint8(4), ev.Index)
	}

	other, err := e.RequestFlightStatus("p1", owner, "ND1310", 1000)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), other.Index)
}
