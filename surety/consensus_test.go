package surety

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
)

const (
	testFlight    = "ND1309"
	testTimestamp = int64(1_700_000_000)
)

func TestSubmitOracleResponseRejections(t *testing.T) {
	settlement := &recordingSettlement{}
	e, _ := newTestEngine(t, DefaultConfig(), WithIndexSource(fixedIndexes(7, 3)), WithSettlement(settlement))
	seedOracles(t, e, "o1")

	_, err := e.SubmitOracleResponse("o1", 7, owner, testFlight, testTimestamp, model.StatusOnTime)
	assert.ErrorIs(t, err, ErrUnknownRequest)

	req, err := e.RequestFlightStatus("p1", owner, testFlight, testTimestamp)
	require.NoError(t, err)
	require.Equal(t, uint8(3), req.Index)

	_, err = e.SubmitOracleResponse("o1", 3, owner, testFlight, testTimestamp, model.StatusCode(15))
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = e.SubmitOracleResponse("stranger", 3, owner, testFlight, testTimestamp, model.StatusOnTime)
	assert.ErrorIs(t, err, ErrNotRegistered)
	_, err = e.SubmitOracleResponse("o1", 3, owner, testFlight, testTimestamp, model.StatusOnTime)
	assert.ErrorIs(t, err, ErrIndexMismatch, "the oracle does not hold the request index")
	_, err = e.SubmitOracleResponse("o1", 7, owner, testFlight, testTimestamp, model.StatusOnTime)
	assert.ErrorIs(t, err, ErrIndexMismatch, "the index differs from the request index")

	req, err = e.StatusRequest(owner, testFlight, testTimestamp)
	require.NoError(t, err)
	assert.Empty(t, req.Responses, "rejections leave no trace")
	assert.Empty(t, settlement.Calls())
}

func TestConsensusThreshold(t *testing.T) {
	settlement := &recordingSettlement{}
	e, _ := newTestEngine(t, DefaultConfig(), WithIndexSource(fixedIndexes(7, 7)), WithSettlement(settlement))
	seedOracles(t, e, "o1", "o2", "o3", "o4", "o5")
	_, err := e.RequestFlightStatus("p1", owner, testFlight, testTimestamp)
	require.NoError(t, err)

	req, err := e.SubmitOracleResponse("o1", 7, owner, testFlight, testTimestamp, model.StatusLateAirline)
	require.NoError(t, err)
	assert.True(t, req.IsOpen)

	_, err = e.SubmitOracleResponse("o1", 7, owner, testFlight, testTimestamp, model.StatusLateAirline)
	assert.ErrorIs(t, err, ErrAlreadyResponded)
	_, err = e.SubmitOracleResponse("o1", 7, owner, testFlight, testTimestamp, model.StatusOnTime)
	assert.ErrorIs(t, err, ErrAlreadyResponded)

	req, err = e.SubmitOracleResponse("o2", 7, owner, testFlight, testTimestamp, model.StatusOnTime)
	require.NoError(t, err)
	assert.True(t, req.IsOpen)
	req, err = e.SubmitOracleResponse("o3", 7, owner, testFlight, testTimestamp, model.StatusLateAirline)
	require.NoError(t, err)
	assert.True(t, req.IsOpen, "two matching responses are not enough")
	assert.Equal(t, 2, req.Count(model.StatusLateAirline))
	assert.Empty(t, settlement.Calls())

	req, err = e.SubmitOracleResponse("o4", 7, owner, testFlight, testTimestamp, model.StatusLateAirline)
	require.NoError(t, err)
	assert.False(t, req.IsOpen)
	assert.True(t, req.Finalized)
	assert.Equal(t, model.StatusLateAirline, req.FinalStatus)
	assert.Equal(t, 3, req.FinalizedWith)
	assert.Equal(t, []finalization{{owner, testFlight, testTimestamp, model.StatusLateAirline}}, settlement.Calls())
}

func TestLateResponseAfterFinalization(t *testing.T) {
	settlement := &recordingSettlement{}
	notifier := &recordingNotifier{}
	e, _ := newTestEngine(t, DefaultConfig(),
		WithIndexSource(fixedIndexes(7, 7)), WithSettlement(settlement), WithNotifier(notifier))
	seedOracles(t, e, "o1", "o2", "o3", "o4")

	req, err := e.RequestFlightStatus("p1", owner, testFlight, testTimestamp)
	require.NoError(t, err)
	require.Equal(t, uint8(7), req.Index)

	for _, o := range []string{"o1", "o2", "o3"} {
		_, err := e.SubmitOracleResponse(o, 7, owner, testFlight, testTimestamp, model.StatusLateAirline)
		require.NoError(t, err)
	}
	req, err = e.SubmitOracleResponse("o4", 7, owner, testFlight, testTimestamp, model.StatusOnTime)
	require.NoError(t, err, "late responses are accepted")
	assert.Equal(t, model.StatusLateAirline, req.FinalStatus)
	assert.Equal(t, 1, req.Count(model.StatusOnTime))
	assert.Len(t, settlement.Calls(), 1)

	// A finalized request is returned as is and no longer announced.
	again, err := e.RequestFlightStatus("p1", owner, testFlight, testTimestamp)
	require.NoError(t, err)
	assert.True(t, again.Finalized)
	assert.Len(t, notifier.Events(), 1)
}

func TestConcurrentResponsesFinalizeOnce(t *testing.T) {
	settlement := &recordingSettlement{}
	e, _ := newTestEngine(t, DefaultConfig(), WithIndexSource(fixedIndexes(7, 7)), WithSettlement(settlement))

	oracles := make([]string, 24)
	for i := range oracles {
		oracles[i] = fmt.Sprintf("oracle-%02d", i)
	}
	seedOracles(t, e, oracles...)
	_, err := e.RequestFlightStatus("p1", owner, testFlight, testTimestamp)
	require.NoError(t, err)

	var g errgroup.Group
	for _, o := range oracles {
		o := o
		g.Go(func() error {
			_, err := e.SubmitOracleResponse(o, 7, owner, testFlight, testTimestamp, model.StatusLateWeather)
			return err
		})
	}
	require.NoError(t, g.Wait())

	req, err := e.StatusRequest(owner, testFlight, testTimestamp)
	require.NoError(t, err)
	assert.True(t, req.Finalized)
	assert.Equal(t, 3, req.FinalizedWith)
	assert.Equal(t, len(oracles), req.Count(model.StatusLateWeather))
	assert.Len(t, settlement.Calls(), 1)
}

func TestConcurrentRequestsAreIndependent(t *testing.T) {
	settlement := &recordingSettlement{}
	e, _ := newTestEngine(t, DefaultConfig(), WithIndexSource(fixedIndexes(7, 7)), WithSettlement(settlement))
	seedOracles(t, e, "o1", "o2", "o3")

	flights := []string{"F1", "F2", "F3", "F4", "F5", "F6"}
	for _, f := range flights {
		_, err := e.RequestFlightStatus("p1", owner, f, testTimestamp)
		require.NoError(t, err)
	}

	var g errgroup.Group
	for _, f := range flights {
		for _, o := range []string{"o1", "o2", "o3"} {
			f, o := f, o
			g.Go(func() error {
				_, err := e.SubmitOracleResponse(o, 7, owner, f, testTimestamp, model.StatusOnTime)
				return err
			})
		}
	}
	require.NoError(t, g.Wait())
	assert.Len(t, settlement.Calls(), len(flights))
}
