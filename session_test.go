package proximity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedPoll struct {
	cfg     *Configuration
	changed bool
	err     error
}

// scriptedSource replays polls and cancels ctx when script is over
type scriptedSource struct {
	mu     sync.Mutex
	polls  []scriptedPoll
	cancel context.CancelFunc
}

func (src *scriptedSource) Poll(ctx context.Context) (*Configuration, bool, error) {
	src.mu.Lock()
	defer src.mu.Unlock()
	if len(src.polls) == 0 {
		src.cancel()
		return nil, false, nil
	}
	p := src.polls[0]
	src.polls = src.polls[1:]
	return p.cfg, p.changed, p.err
}

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []*Snapshot
}

func (pub *recordingPublisher) Publish(ctx context.Context, snap *Snapshot) error {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	pub.snaps = append(pub.snaps, snap)
	return nil
}

func TestSessionListen(t *testing.T) {
	toy := newToyScenario(t)
	parks, _ := toy.categories.Lookup("parks")
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	session, err := NewSession(toy.base, toy.catalogue, UpdateOptions{Metrics: metrics})
	require.NoError(t, err)

	park := &Configuration{Cells: []Cell{{}, {}, {}, {Name: "Park"}}}
	tooLong := &Configuration{Cells: make([]Cell, 10)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := &scriptedSource{
		cancel: cancel,
		polls: []scriptedPoll{
			{cfg: park, changed: true},
			{cfg: park, changed: false},
			{err: errors.New("feed is down")},
			{cfg: tooLong, changed: true},
		},
	}
	publisher := &recordingPublisher{}
	err = session.Listen(ctx, source, publisher, time.Millisecond)
	require.NoError(t, err)

	// baseline, update, re-publish after feed error, re-publish after rejected configuration
	require.Len(t, publisher.snaps, 4)
	assert.Equal(t, 5.0, publisher.snaps[0].SampleAccess[0][parks])
	assert.Equal(t, 7.0, publisher.snaps[1].SampleAccess[0][parks])
	assert.Same(t, publisher.snaps[1], publisher.snaps[2])
	assert.Same(t, publisher.snaps[1], publisher.snaps[3])
	assert.Same(t, publisher.snaps[1], session.Current())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpdatesApplied))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpdatesSkipped.WithLabelValues("source")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpdatesSkipped.WithLabelValues("configuration")))
}

func TestSessionUpdateKeepsStateOnError(t *testing.T) {
	toy := newToyScenario(t)
	session, err := NewSession(toy.base, toy.catalogue, UpdateOptions{})
	require.NoError(t, err)
	before := session.Current()
	assert.Empty(t, before.Hash)

	_, err = session.Update(&Configuration{Cells: make([]Cell, 5)})
	assert.ErrorIs(t, err, ErrCellOutOfRange)
	assert.Same(t, before, session.Current())

	snap, err := session.Update(&Configuration{Cells: []Cell{{Name: "Park"}}})
	require.NoError(t, err)
	assert.Same(t, snap, session.Current())
	assert.NotEmpty(t, snap.Hash)
}

func TestSessionConcurrentUpdates(t *testing.T) {
	toy := newToyScenario(t)
	session, err := NewSession(toy.base, toy.catalogue, UpdateOptions{})
	require.NoError(t, err)
	cfg := &Configuration{Cells: []Cell{{Name: "Park"}, {Name: "Residential"}}}
	expected, err := ApplyConfiguration(toy.base, toy.catalogue, cfg, UpdateOptions{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := session.Update(cfg)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, expected.SampleAccess, session.Current().SampleAccess)
	assert.Equal(t, expected.GridAccess, session.Current().GridAccess)
}
