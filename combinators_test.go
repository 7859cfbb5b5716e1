package simloop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_fulfillsInInputOrder(t *testing.T) {
	l := mustLoop(t)

	// Settle out of order; results must still be in input order.
	a := l.Promisify("a", 3, func() (Result, error) { return "a", nil })
	b := l.Promisify("b", 1, func() (Result, error) { return "b", nil })
	c := l.Promisify("c", 2, func() (Result, error) { return "c", nil })

	var got Result
	l.All(a, b, c).Then(func(v Result) Result {
		got = v
		return nil
	}, nil)

	require.NoError(t, l.RunUntilIdle())
	require.Equal(t, []Result{"a", "b", "c"}, got)
}

func TestAll_rejectsOnFirstRejection(t *testing.T) {
	l := mustLoop(t)

	boom := errors.New("boom")
	slow := l.Promisify("slow", 5, func() (Result, error) { return "slow", nil })
	failing := l.Promisify("failing", 1, func() (Result, error) { return nil, boom })

	var reason Result
	l.All(slow, failing).Catch(func(r Result) Result {
		reason = r
		return nil
	})

	require.NoError(t, l.RunUntilIdle())
	assert.Equal(t, boom, reason)
	// The slow promise still settled; it just no longer affects the result.
	assert.Equal(t, Fulfilled, slow.State())
}

func TestAll_emptyInput(t *testing.T) {
	l := mustLoop(t)

	var got Result
	l.All().Then(func(v Result) Result {
		got = v
		return nil
	}, nil)

	require.NoError(t, l.RunUntilIdle())
	require.Equal(t, []Result{}, got)
}

func TestRace_lowestDelayWins(t *testing.T) {
	l := mustLoop(t)

	slow := l.Promisify("slow", 200, func() (Result, error) { return "slow", nil })
	fast := l.Promisify("fast", 50, func() (Result, error) { return "fast", nil })

	var got Result
	l.Race(slow, fast).Then(func(v Result) Result {
		got = v
		return nil
	}, nil)

	require.NoError(t, l.RunUntilIdle())
	assert.Equal(t, "fast", got)
}

func TestRace_firstSettlementWinsEvenIfRejection(t *testing.T) {
	l := mustLoop(t)

	boom := errors.New("boom")
	failFast := l.Promisify("fail", 1, func() (Result, error) { return nil, boom })
	winSlow := l.Promisify("win", 2, func() (Result, error) { return "win", nil })

	var reason Result
	l.Race(failFast, winSlow).Catch(func(r Result) Result {
		reason = r
		return nil
	})

	require.NoError(t, l.RunUntilIdle())
	assert.Equal(t, boom, reason)
}

func TestRace_emptyNeverSettles(t *testing.T) {
	l := mustLoop(t)

	p := l.Race()
	require.NoError(t, l.RunUntilIdle())
	assert.Equal(t, Pending, p.State())
}

func TestAny_firstFulfillmentWins(t *testing.T) {
	l := mustLoop(t)

	failFast := l.Promisify("fail", 1, func() (Result, error) { return nil, errors.New("boom") })
	winner := l.Promisify("win", 2, func() (Result, error) { return "win", nil })

	var got Result
	l.Any(failFast, winner).Then(func(v Result) Result {
		got = v
		return nil
	}, nil)

	require.NoError(t, l.RunUntilIdle())
	assert.Equal(t, "win", got)
}

func TestAny_aggregateErrorPreservesInputOrder(t *testing.T) {
	l := mustLoop(t)

	errA := errors.New("a")
	errB := errors.New("b")
	// b rejects first, but the aggregate must list reasons in input order.
	a := l.Promisify("a", 2, func() (Result, error) { return nil, errA })
	b := l.Promisify("b", 1, func() (Result, error) { return nil, errB })

	var reason Result
	l.Any(a, b).Catch(func(r Result) Result {
		reason = r
		return nil
	})

	require.NoError(t, l.RunUntilIdle())

	var agg *AggregateError
	require.ErrorAs(t, asError(reason), &agg)
	require.Equal(t, []error{errA, errB}, agg.Errors)
	assert.ErrorIs(t, agg, errA)
	assert.ErrorIs(t, agg, errB)
}

func TestAny_emptyRejectsImmediately(t *testing.T) {
	l := mustLoop(t)

	var reason Result
	l.Any().Catch(func(r Result) Result {
		reason = r
		return nil
	})

	require.NoError(t, l.RunUntilIdle())

	var agg *AggregateError
	require.ErrorAs(t, asError(reason), &agg)
	assert.Empty(t, agg.Errors)
}

func TestAllSettled_neverRejects(t *testing.T) {
	l := mustLoop(t)

	boom := errors.New("boom")
	ok := l.Promisify("ok", 2, func() (Result, error) { return "ok", nil })
	bad := l.Promisify("bad", 1, func() (Result, error) { return nil, boom })

	var got Result
	l.AllSettled(ok, bad).Then(func(v Result) Result {
		got = v
		return nil
	}, nil)

	require.NoError(t, l.RunUntilIdle())

	outcomes, isSlice := got.([]SettledResult)
	require.True(t, isSlice, "AllSettled value type: %T", got)
	require.Len(t, outcomes, 2)
	assert.Equal(t, SettledResult{State: Fulfilled, Value: "ok"}, outcomes[0])
	assert.Equal(t, SettledResult{State: Rejected, Reason: boom}, outcomes[1])
}

func TestAllSettled_emptyInput(t *testing.T) {
	l := mustLoop(t)

	var got Result
	l.AllSettled().Then(func(v Result) Result {
		got = v
		return nil
	}, nil)

	require.NoError(t, l.RunUntilIdle())
	require.Equal(t, []SettledResult{}, got)
}
