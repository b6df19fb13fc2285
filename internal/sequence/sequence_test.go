package sequence

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []string
	err    error
}

func (r *recorder) RoundTrip() error {
	r.events = append(r.events, "sync")
	return r.err
}

func (r *recorder) action(name string) func() error {
	return func() error {
		r.events = append(r.events, name)
		return nil
	}
}

func TestPressOrder(t *testing.T) {
	rec := &recorder{}
	var slept []time.Duration

	err := New(rec, WithSleep(func(d time.Duration) {
		rec.events = append(rec.events, "hold")
		slept = append(slept, d)
	})).
		Do("move", rec.action("move")).
		Sync().
		Press("click", rec.action("down"), rec.action("up"), 10*time.Millisecond).
		Run()
	require.NoError(t, err)

	assert.Equal(t, []string{"move", "sync", "down", "sync", "hold", "up", "sync"}, rec.events)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, slept)
}

func TestZeroHoldDoesNotSleep(t *testing.T) {
	rec := &recorder{}
	err := New(rec, WithSleep(func(time.Duration) { t.Fatal("unexpected sleep") })).
		Hold(0).
		Run()
	assert.NoError(t, err)
}

func TestRunStopsAtFirstError(t *testing.T) {
	rec := &recorder{err: errors.New("broken pipe")}

	err := New(rec, WithSleep(func(time.Duration) {})).
		Press("key", rec.action("down"), rec.action("up"), time.Millisecond).
		Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, rec.err)
	assert.Contains(t, err.Error(), "sync")
	assert.Equal(t, []string{"down", "sync"}, rec.events)
}

type countingLocker struct {
	sync.Mutex
	unlocks int
}

func (l *countingLocker) Unlock() {
	l.unlocks++
	l.Mutex.Unlock()
}

func TestHoldReleasesLocker(t *testing.T) {
	l := &countingLocker{}
	l.Lock()

	acquired := false
	err := New(&recorder{}, WithLocker(l), WithSleep(func(time.Duration) {
		acquired = l.TryLock()
		if acquired {
			l.Mutex.Unlock()
		}
	})).Hold(time.Second).Run()
	require.NoError(t, err)

	assert.True(t, acquired, "lock free during hold")
	assert.Equal(t, 1, l.unlocks)
	assert.False(t, l.TryLock(), "lock held again after hold")
	l.Unlock()
}
