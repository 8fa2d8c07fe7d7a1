package channel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

// fakeBridge blocks in Start until stopped, like a real connection.
type fakeBridge struct {
	id       string
	startErr error
	stop     chan struct{}
	once     sync.Once
	started  chan struct{}
}

func newFakeBridge(id string) *fakeBridge {
	return &fakeBridge{id: id, stop: make(chan struct{}), started: make(chan struct{})}
}

func (f *fakeBridge) ID() string { return f.id }
func (f *fakeBridge) Start(ctx context.Context) error {
	close(f.started)
	if f.startErr != nil {
		return f.startErr
	}
	select {
	case <-f.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
func (f *fakeBridge) Stop(context.Context) error {
	f.once.Do(func() { close(f.stop) })
	return nil
}
func (f *fakeBridge) Send(context.Context, domain.OutboundMessage) error { return nil }
func (f *fakeBridge) OnMessage(func(domain.InboundMessage))             {}

// reportingBridge also reports its own status.
type reportingBridge struct {
	*fakeBridge
}

func (r reportingBridge) Status() domain.ChannelStatus {
	return domain.ChannelStatus{ChannelID: r.id, Connected: true, LastError: "lag"}
}

func TestRegistry_RegisterGetList(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.Register(newFakeBridge("irc"))
	reg.Register(newFakeBridge("matrix"))
	reg.Register(newFakeBridge("irc"))

	assert.Equal(t, 2, reg.Count())
	assert.Equal(t, []string{"irc", "matrix"}, reg.List())

	ch, ok := reg.Get("irc")
	require.True(t, ok)
	assert.Equal(t, "irc", ch.ID())

	_, ok = reg.Get("slack")
	assert.False(t, ok)
}

func TestRegistry_Status(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.Register(newFakeBridge("matrix"))
	reg.Register(reportingBridge{newFakeBridge("irc")})

	assert.Equal(t, []domain.ChannelStatus{
		{ChannelID: "irc", Connected: true, LastError: "lag"},
		{ChannelID: "matrix", Running: true},
	}, reg.Status())
}

func TestRegistry_StartAndStopAll(t *testing.T) {
	reg := NewRegistry(testLogger())
	a, b := newFakeBridge("irc"), newFakeBridge("matrix")
	b.startErr = errors.New("refused")
	reg.Register(a)
	reg.Register(b)

	reg.StartAll(context.Background())
	for _, f := range []*fakeBridge{a, b} {
		select {
		case <-f.started:
		case <-time.After(2 * time.Second):
			t.Fatalf("%s never started", f.id)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	reg.StopAll(ctx)
	assert.NoError(t, ctx.Err(), "StopAll should return once every Start has returned")
}

func TestRegistry_StopAllHonorsContext(t *testing.T) {
	reg := NewRegistry(testLogger())
	stuck := &stuckBridge{fakeBridge: newFakeBridge("irc"), release: make(chan struct{})}
	reg.Register(stuck)
	reg.StartAll(context.Background())
	<-stuck.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	reg.StopAll(ctx)
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)

	close(stuck.release)
}

// stuckBridge ignores Stop until released.
type stuckBridge struct {
	*fakeBridge
	release chan struct{}
}

func (s *stuckBridge) Start(context.Context) error {
	close(s.started)
	<-s.release
	return nil
}

func (s *stuckBridge) Stop(context.Context) error { return nil }
