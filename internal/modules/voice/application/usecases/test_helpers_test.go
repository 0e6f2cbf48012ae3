package usecases

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/application/ports"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/domain"
)

type mockHandle struct {
	disconnects   atomic.Int32
	disconnectErr error
}

func (m *mockHandle) Disconnect(_ context.Context) error {
	m.disconnects.Add(1)
	return m.disconnectErr
}

// mockSlowHandle signals disconnecting and blocks its Disconnect until
// release is closed.
type mockSlowHandle struct {
	disconnecting chan struct{}
	release       chan struct{}
}

func newMockSlowHandle() *mockSlowHandle {
	return &mockSlowHandle{
		disconnecting: make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (m *mockSlowHandle) Disconnect(_ context.Context) error {
	close(m.disconnecting)
	<-m.release
	return nil
}

// mockActiveHandle reports activity through ports.ActivitySource.
type mockActiveHandle struct {
	mockHandle

	mu       sync.Mutex
	activity func()
}

func (m *mockActiveHandle) OnActivity(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = fn
}

func (m *mockActiveHandle) emitActivity() {
	m.mu.Lock()
	fn := m.activity
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type mockJoinTarget struct {
	handle  ports.ConnectionHandle
	joinErr error

	// When set, Join signals started and blocks until release is closed.
	started chan struct{}
	release chan struct{}

	joins atomic.Int32
}

func newMockJoinTarget() *mockJoinTarget {
	return &mockJoinTarget{handle: &mockHandle{}}
}

func newBlockingJoinTarget() *mockJoinTarget {
	return &mockJoinTarget{
		handle:  &mockHandle{},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (m *mockJoinTarget) Join(ctx context.Context) (ports.ConnectionHandle, error) {
	m.joins.Add(1)

	if m.release != nil {
		select {
		case m.started <- struct{}{}:
		default:
		}
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.joinErr != nil {
		return nil, m.joinErr
	}
	return m.handle, nil
}

type mockVoiceBackend struct {
	target   *mockJoinTarget
	channels []snowflake.ID
}

func (m *mockVoiceBackend) Channel(_, channelID snowflake.ID) ports.JoinTarget {
	m.channels = append(m.channels, channelID)
	return m.target
}

type mockVoiceStateProvider struct {
	channels map[snowflake.ID]snowflake.ID // userID -> channelID
	err      error
}

func (m *mockVoiceStateProvider) GetUserVoiceChannel(
	_, userID snowflake.ID,
) (snowflake.ID, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.channels[userID], nil
}

type sentNotification struct {
	channelID snowflake.ID
	reason    domain.DisconnectReason
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (m *mockNotifier) SendDisconnected(channelID snowflake.ID, reason domain.DisconnectReason) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{channelID: channelID, reason: reason})
	return m.err
}

func (m *mockNotifier) notifications() []sentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentNotification(nil), m.sent...)
}

// reasonRecorder collects disconnect callback invocations in order.
type reasonRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *reasonRecorder) callback(name string) DisconnectCallback {
	return func(reason domain.DisconnectReason) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, name+":"+reason.String())
	}
}

func (r *reasonRecorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
