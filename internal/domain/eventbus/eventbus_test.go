package eventbus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingNavigator struct {
	calls atomic.Int32
	last  atomic.Value
}

func (n *countingNavigator) RedirectToLogin(returnPath string) {
	n.calls.Add(1)
	n.last.Store(returnPath)
}

func TestRedirectLatch_FiresOncePerEpisode(t *testing.T) {
	nav := &countingNavigator{}
	latch := Latched(nav)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			latch.RedirectToLogin("/orders")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), nav.calls.Load())
	assert.True(t, latch.Fired())
	assert.Equal(t, "/orders", nav.last.Load())

	latch.Reset()
	latch.RedirectToLogin("/finances")
	assert.Equal(t, int32(2), nav.calls.Load())
}

func TestRedirectLatch_NilSafe(t *testing.T) {
	var latch *RedirectLatch
	assert.NotPanics(t, func() {
		latch.RedirectToLogin("/")
		latch.Reset()
	})
	assert.False(t, latch.Fired())
}

func TestAsyncEventBus_DeliversAndRecovers(t *testing.T) {
	bus := NewAsyncEventBus(2, nil)
	bus.Start()
	defer bus.Stop()

	var got []Notification
	var mu sync.Mutex
	require.NoError(t, bus.Subscribe(TopicNotify, func(n Notification) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	}))
	require.NoError(t, bus.Subscribe(TopicRedirectLogin, func(RedirectEvent) {
		panic("subscriber bug")
	}))

	BusNotifier{Bus: bus}.Notify(NotifyError, "boom", NotifyOptions{})
	BusNavigator{Bus: bus}.RedirectToLogin("/")
	bus.WaitAsync()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, NotifyError, got[0].Kind)
	assert.Equal(t, "boom", got[0].Message)
}

func TestAsyncEventBus_DropsWhenFull(t *testing.T) {
	bus := NewAsyncEventBus(1, nil)
	// not started: the queue fills up
	for i := 0; i < cap(bus.workChan)+5; i++ {
		bus.PublishAsync(TopicSessionLogin, SessionEvent{})
	}
	assert.Equal(t, int64(5), bus.Dropped())

	bus.Start()
	bus.Stop()
}

func TestAsyncEventBus_PublishAfterStopIsIgnored(t *testing.T) {
	bus := NewAsyncEventBus(1, nil)
	bus.Start()
	bus.Stop()

	bus.PublishAsync(TopicSessionLogout, SessionEvent{})
	assert.Empty(t, bus.workChan)

	done := make(chan struct{})
	go func() {
		bus.WaitAsync()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitAsync blocked on an event published after Stop")
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(format string) {
	l.mu.Lock()
	l.lines = append(l.lines, format)
	l.mu.Unlock()
}
func (l *recordingLogger) Debug(format string, _ ...any) { l.add(format) }
func (l *recordingLogger) Info(format string, _ ...any)  { l.add(format) }
func (l *recordingLogger) Warn(format string, _ ...any)  { l.add(format) }
func (l *recordingLogger) Error(format string, _ ...any) { l.add(format) }

func TestLogEvents(t *testing.T) {
	bus := NewAsyncEventBus(1, nil)
	bus.Start()
	defer bus.Stop()

	logger := &recordingLogger{}
	require.NoError(t, LogEvents(bus, logger))

	bus.PublishAsync(TopicSessionExpired, SessionEvent{UserID: "1", Reason: "refresh failed"})
	bus.PublishAsync(TopicNotify, Notification{Kind: NotifyWarning, Message: "slow"})
	bus.WaitAsync()

	logger.mu.Lock()
	defer logger.mu.Unlock()
	assert.Len(t, logger.lines, 2)
}
