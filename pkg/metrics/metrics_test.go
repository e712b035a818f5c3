package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reactor/pkg/reactor"
)

func newRuntime(t *testing.T, opts ...reactor.Option) (*reactor.Runtime, *Observer) {
	t.Helper()
	obs := New(WithRegistry(prometheus.NewRegistry()))
	rt := reactor.New(append(opts, reactor.WithObserver(obs))...)
	return rt, obs
}

func TestObserverCountsRunsAndDrains(t *testing.T) {
	rt, obs := newRuntime(t)
	b := rt.Builder(rt.CreateRoot("app"))
	count := reactor.CreateMutable(b, 0)
	_, err := b.CreateEffect(func(cx *reactor.Rcx) { count.Get(cx) })
	require.NoError(t, err)

	require.NoError(t, count.Set(1))
	_, err = rt.DrainPending(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(obs.runsTotal.WithLabelValues("effect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.drainsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(obs.pending))
	assert.Equal(t, 1, testutil.CollectAndCount(obs.drainDuration))
}

func TestObserverCountsAbortsAndFailures(t *testing.T) {
	rt, obs := newRuntime(t, reactor.WithMaxDrainRuns(5))
	b := rt.Builder(rt.CreateRoot("app"))
	count := reactor.CreateMutable(b, 0)
	_, err := b.CreateEffect(func(cx *reactor.Rcx) {
		count.Set(count.Get(cx) + 1)
	})
	require.NoError(t, err)

	_, err = rt.DrainPending(context.Background())
	require.ErrorIs(t, err, reactor.ErrUnboundedCycle)
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.drainAborts))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.pending))

	items := reactor.CreateMutable(b, []string{"a", "a"})
	_, err = reactor.ForEach(b, func(cx *reactor.Rcx) []string { return items.Get(cx) },
		func(*reactor.Builder, string) {}, nil)
	require.ErrorIs(t, err, reactor.ErrDuplicateKey)
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.runFailures.WithLabelValues("for_each", "duplicate_key")))
}

func TestObserverCountsReconcileAndDestroy(t *testing.T) {
	rt, obs := newRuntime(t)
	root := rt.CreateRoot("app")
	b := rt.Builder(root)
	items := reactor.CreateMutable(b, []string{"a", "b", "c"})
	_, err := reactor.ForEach(b, func(cx *reactor.Rcx) []string { return items.Get(cx) },
		func(*reactor.Builder, string) {}, nil)
	require.NoError(t, err)

	require.NoError(t, items.Set([]string{"a", "c", "d"}))
	_, err = rt.DrainPending(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4.0, testutil.ToFloat64(obs.reconcileTotal.WithLabelValues("for_each", "built")))
	assert.Equal(t, 2.0, testutil.ToFloat64(obs.reconcileTotal.WithLabelValues("for_each", "reused")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.reconcileTotal.WithLabelValues("for_each", "destroyed")))

	before := testutil.ToFloat64(obs.destroyedTotal)
	require.NoError(t, rt.Destroy(root))
	// root, cell, list reaction and three items
	assert.Equal(t, before+6, testutil.ToFloat64(obs.destroyedTotal))
}

func TestFailureKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&reactor.RunError{Err: &reactor.StaleHandleError{Kind: "mutable"}}, "stale_handle"},
		{&reactor.DuplicateKeyError{}, "duplicate_key"},
		{reactor.ErrTypeMismatch, "type_mismatch"},
		{reactor.ErrNotWritable, "not_writable"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FailureKind(tt.err))
	}
}
