package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/teampoints/internal/model"
)

type fakeProjector struct {
	mu      sync.Mutex
	members []*model.Member
	err     error
	calls   int
}

func (f *fakeProjector) project(_ context.Context, _ string) ([]*model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.members, f.err
}

func (f *fakeProjector) set(members []*model.Member, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members = members
	f.err = err
}

func recvSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestBroker_SubscribeDeliversCurrentState(t *testing.T) {
	fp := &fakeProjector{members: []*model.Member{{UserID: "owner", Points: 50}}}
	b := NewBroker(fp.project, time.Second)

	ch, cancel := b.Subscribe("team-1")
	defer cancel()

	snap := recvSnapshot(t, ch)
	require.NoError(t, snap.Err)
	require.Len(t, snap.Members, 1)
	assert.Equal(t, "owner", snap.Members[0].UserID)
	assert.Equal(t, int64(50), snap.Members[0].Points)
}

func TestBroker_NotifyFansOutToAllObservers(t *testing.T) {
	fp := &fakeProjector{members: []*model.Member{{UserID: "owner", Points: 0}}}
	b := NewBroker(fp.project, time.Second)

	ch1, cancel1 := b.Subscribe("team-1")
	defer cancel1()
	ch2, cancel2 := b.Subscribe("team-1")
	defer cancel2()

	// Both observers of one team share a single feed.
	assert.Equal(t, 1, b.activeFeeds())

	// Drain the initial snapshots.
	recvSnapshot(t, ch1)
	recvSnapshot(t, ch2)

	fp.set([]*model.Member{{UserID: "owner", Points: 75}}, nil)
	b.Notify("team-1")

	// A stale snapshot from the subscribe-time refresh may still be pending;
	// keep reading until the post-mutation state arrives.
	for _, ch := range []<-chan Snapshot{ch1, ch2} {
		deadline := time.After(2 * time.Second)
		for {
			var snap Snapshot
			select {
			case snap = <-ch:
			case <-deadline:
				t.Fatal("timed out waiting for updated snapshot")
			}
			require.NoError(t, snap.Err)
			require.Len(t, snap.Members, 1)
			if snap.Members[0].Points == 75 {
				break
			}
		}
	}
}

func TestBroker_LastCancelTearsDownFeed(t *testing.T) {
	fp := &fakeProjector{}
	b := NewBroker(fp.project, time.Second)

	_, cancel1 := b.Subscribe("team-1")
	_, cancel2 := b.Subscribe("team-1")
	require.Equal(t, 1, b.activeFeeds())

	cancel1()
	assert.Equal(t, 1, b.activeFeeds())

	cancel2()
	assert.Equal(t, 0, b.activeFeeds())

	// Cancel is idempotent.
	cancel2()
	assert.Equal(t, 0, b.activeFeeds())
}

func TestBroker_IndependentTeamsGetIndependentFeeds(t *testing.T) {
	fp := &fakeProjector{}
	b := NewBroker(fp.project, time.Second)

	_, cancel1 := b.Subscribe("team-1")
	defer cancel1()
	_, cancel2 := b.Subscribe("team-2")
	defer cancel2()

	assert.Equal(t, 2, b.activeFeeds())
}

func TestBroker_ProjectionFailureSurfacesToObservers(t *testing.T) {
	fp := &fakeProjector{err: errors.New("store unavailable")}
	b := NewBroker(fp.project, time.Second)

	ch, cancel := b.Subscribe("team-1")
	defer cancel()

	snap := recvSnapshot(t, ch)
	require.Error(t, snap.Err)
	assert.Nil(t, snap.Members)
}

func TestBroker_NotifyWithoutObserversIsNoop(t *testing.T) {
	fp := &fakeProjector{}
	b := NewBroker(fp.project, time.Second)

	b.Notify("team-1")

	fp.mu.Lock()
	defer fp.mu.Unlock()
	assert.Zero(t, fp.calls)
}

// A subscribe racing the last observer's cancel must always land on a live
// feed: either the one being re-checked or a fresh replacement.
func TestBroker_SubscribeRacingLastCancelGetsLiveFeed(t *testing.T) {
	fp := &fakeProjector{members: []*model.Member{{UserID: "owner", Points: 50}}}
	b := NewBroker(fp.project, time.Second)

	for i := 0; i < 500; i++ {
		_, cancelFirst := b.Subscribe("team-1")

		done := make(chan struct{})
		go func() {
			cancelFirst()
			close(done)
		}()

		ch, cancelSecond := b.Subscribe("team-1")
		<-done

		recvSnapshot(t, ch)
		cancelSecond()
	}

	require.Eventually(t, func() bool {
		return b.activeFeeds() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
