package watch

import (
	"context"
	"sync"
	"time"

	"github.com/yakoovad/teampoints/internal/model"
)

// Snapshot is one observed leaderboard state. Err is set when the refresh
// behind it failed, so observers see a stalled state rather than an empty
// board.
type Snapshot struct {
	TeamID  string          `json:"team_id"`
	Members []*model.Member `json:"members"`
	Err     error           `json:"-"`
}

// ProjectFunc recomputes the ordered leaderboard for a team.
type ProjectFunc func(ctx context.Context, teamID string) ([]*model.Member, error)

// Notifier is the side the mutating services talk to.
type Notifier interface {
	Notify(teamID string)
}

// Broker fans leaderboard changes out to observers. All observers of one team
// share a single feed; the feed is torn down when the last observer cancels.
type Broker struct {
	project ProjectFunc
	timeout time.Duration

	mu    sync.Mutex
	feeds map[string]*feed
}

type feed struct {
	teamID string
	nudge  chan struct{}
	stop   chan struct{}

	mu   sync.Mutex
	subs map[int]chan Snapshot
	next int
}

func NewBroker(project ProjectFunc, timeout time.Duration) *Broker {
	return &Broker{
		project: project,
		timeout: timeout,
		feeds:   make(map[string]*feed),
	}
}

// Subscribe registers an observer for a team's leaderboard and returns the
// snapshot channel plus a cancel func. Cancel is idempotent and must be called
// once the observer is done.
func (b *Broker) Subscribe(teamID string) (<-chan Snapshot, func()) {
	b.mu.Lock()
	f, ok := b.feeds[teamID]
	if !ok {
		f = &feed{
			teamID: teamID,
			nudge:  make(chan struct{}, 1),
			stop:   make(chan struct{}),
			subs:   make(map[int]chan Snapshot),
		}
		b.feeds[teamID] = f
		go b.run(f)
	}

	// Register while still holding the broker lock. A last-observer cancel
	// needs that lock before it may tear the feed down, so the feed cannot
	// die under a registration in flight.
	f.mu.Lock()
	id := f.next
	f.next++
	ch := make(chan Snapshot, 1)
	f.subs[id] = ch
	f.mu.Unlock()
	b.mu.Unlock()

	// Kick a refresh so the new observer gets the current state.
	f.wake()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			close(ch)
			empty := len(f.subs) == 0
			f.mu.Unlock()

			if !empty {
				return
			}

			b.mu.Lock()
			// Re-check under the broker lock: a new observer may have
			// subscribed in the meantime.
			f.mu.Lock()
			if len(f.subs) == 0 && b.feeds[teamID] == f {
				delete(b.feeds, teamID)
				close(f.stop)
			}
			f.mu.Unlock()
			b.mu.Unlock()
		})
	}

	return ch, cancel
}

// Notify signals that a team's membership or points changed. It never blocks;
// pending signals for the same team coalesce.
func (b *Broker) Notify(teamID string) {
	b.mu.Lock()
	f, ok := b.feeds[teamID]
	b.mu.Unlock()

	if ok {
		f.wake()
	}
}

func (f *feed) wake() {
	select {
	case f.nudge <- struct{}{}:
	default:
	}
}

func (b *Broker) run(f *feed) {
	for {
		select {
		case <-f.stop:
			return
		case <-f.nudge:
			ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
			members, err := b.project(ctx, f.teamID)
			cancel()

			snap := Snapshot{TeamID: f.teamID, Members: members, Err: err}

			f.mu.Lock()
			for _, ch := range f.subs {
				select {
				case ch <- snap:
				default:
					// Observer still holds an unread snapshot; replace it
					// with the fresher one.
					select {
					case <-ch:
					default:
					}
					select {
					case ch <- snap:
					default:
					}
				}
			}
			f.mu.Unlock()
		}
	}
}

func (b *Broker) activeFeeds() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.feeds)
}
