package statemachine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafiki-assist/rafiki/pkg/statemachine"
)

const (
	intro    statemachine.State = "intro"
	scan     statemachine.State = "scan"
	verify   statemachine.State = "verify"
	complete statemachine.State = "complete"

	generated statemachine.Event = "generated"
	opened    statemachine.Event = "opened"
	verified  statemachine.Event = "verified"
	restarted statemachine.Event = "restarted"
)

func wizard(t *testing.T, opts ...statemachine.Option) *statemachine.Definition {
	t.Helper()
	base := []statemachine.Option{
		statemachine.WithTransition(intro, scan, generated),
		statemachine.WithTransition(scan, verify, opened),
		statemachine.WithTransition(scan, intro, restarted),
		statemachine.WithTransition(verify, intro, restarted),
	}
	def, err := statemachine.Define(intro, append(base, opts...)...)
	require.NoError(t, err)
	return def
}

func TestMachine_Fire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	def := wizard(t, statemachine.WithTransition(verify, complete, verified))
	m := def.New()
	assert.Equal(t, intro, m.Current())

	require.NoError(t, m.Fire(ctx, generated, nil))
	require.NoError(t, m.Fire(ctx, opened, nil))
	require.NoError(t, m.Fire(ctx, verified, nil))
	assert.Equal(t, complete, m.Current())
	assert.True(t, m.Done())

	m.Reset()
	assert.Equal(t, intro, m.Current())
	assert.False(t, m.Done())
}

func TestMachine_NoTransition(t *testing.T) {
	t.Parallel()

	m := wizard(t).New()
	err := m.Fire(context.Background(), verified, nil)
	require.Error(t, err)
	assert.True(t, statemachine.IsNoTransition(err))
	assert.Equal(t, intro, m.Current())

	assert.ErrorIs(t, m.Fire(context.Background(), "", nil), statemachine.ErrInvalidEvent)
}

func TestMachine_Guards(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	allowed := func(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
		ok, _ := data.(bool)
		return ok
	}
	def := wizard(t, statemachine.WithTransition(verify, complete, verified, statemachine.WithGuard(allowed)))

	m, err := def.Restore(verify)
	require.NoError(t, err)

	assert.False(t, m.CanFire(ctx, verified, false))
	err = m.Fire(ctx, verified, false)
	assert.True(t, statemachine.IsRejected(err))
	assert.Equal(t, verify, m.Current())

	assert.True(t, m.CanFire(ctx, verified, true))
	require.NoError(t, m.Fire(ctx, verified, true))
	assert.Equal(t, complete, m.Current())
}

func TestMachine_FirstAllowedTransitionWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	never := func(context.Context, statemachine.State, statemachine.Event, any) bool { return false }
	def, err := statemachine.Define(intro,
		statemachine.WithTransition(intro, complete, generated, statemachine.WithGuard(never)),
		statemachine.WithTransition(intro, scan, generated),
	)
	require.NoError(t, err)

	m := def.New()
	require.NoError(t, m.Fire(ctx, generated, nil))
	assert.Equal(t, scan, m.Current())
}

func TestMachine_ActionFailureKeepsState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	boom := errors.New("boom")
	var calls []string
	record := func(_ context.Context, from, to statemachine.State, ev statemachine.Event, _ any) error {
		calls = append(calls, string(from)+">"+string(to)+"@"+string(ev))
		return nil
	}
	fail := func(context.Context, statemachine.State, statemachine.State, statemachine.Event, any) error {
		return boom
	}

	def := wizard(t, statemachine.WithTransition(verify, complete, verified, statemachine.WithAction(record, fail)))
	m, err := def.Restore(verify)
	require.NoError(t, err)

	err = m.Fire(ctx, verified, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, verify, m.Current())
	assert.Equal(t, []string{"verify>complete@verified"}, calls)
}

func TestDefinition(t *testing.T) {
	t.Parallel()

	def := wizard(t)
	assert.Equal(t, intro, def.Initial())
	assert.True(t, def.Has(verify))
	assert.False(t, def.Has("unknown"))
	assert.Equal(t, []statemachine.Event{opened, restarted}, def.Events(scan))
	assert.True(t, def.Terminal(complete))

	_, err := def.Restore("unknown")
	assert.ErrorIs(t, err, statemachine.ErrUnknownState)

	_, err = statemachine.Define("")
	assert.ErrorIs(t, err, statemachine.ErrInvalidState)

	_, err = statemachine.Define(intro, statemachine.WithTransition(intro, "", generated))
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	assert.Panics(t, func() {
		statemachine.MustDefine(intro, statemachine.WithTransition("", scan, generated))
	})
}

func TestMachine_ConcurrentFire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	def := wizard(t)
	m := def.New()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Fire(ctx, generated, nil) == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, scan, m.Current())
}
