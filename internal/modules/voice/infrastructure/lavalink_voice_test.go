package infrastructure

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

type voiceStateCall struct {
	guildID   string
	channelID string
	deaf      bool
}

type mockVoiceStateUpdater struct {
	mu     sync.Mutex
	calls  []voiceStateCall
	err    error
	called chan struct{}
}

func newMockVoiceStateUpdater() *mockVoiceStateUpdater {
	return &mockVoiceStateUpdater{called: make(chan struct{}, 4)}
}

func (m *mockVoiceStateUpdater) ChannelVoiceJoinManual(gID, cID string, _, deaf bool) error {
	m.mu.Lock()
	m.calls = append(m.calls, voiceStateCall{guildID: gID, channelID: cID, deaf: deaf})
	m.mu.Unlock()

	select {
	case m.called <- struct{}{}:
	default:
	}
	return m.err
}

func (m *mockVoiceStateUpdater) recorded() []voiceStateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]voiceStateCall(nil), m.calls...)
}

const testBotID = snowflake.ID(777)

func TestLavalinkVoice_JoinWaitsForBothEvents(t *testing.T) {
	gateway := newMockVoiceStateUpdater()
	voice := newLavalinkVoice(gateway, testBotID, true)

	type joinResult struct {
		err error
	}
	done := make(chan joinResult, 1)
	go func() {
		_, err := voice.Channel(snowflake.ID(1), snowflake.ID(2)).Join(context.Background())
		done <- joinResult{err: err}
	}()

	select {
	case <-gateway.called:
	case <-time.After(time.Second):
		t.Fatal("expected voice state update to be sent")
	}

	voice.OnVoiceStateUpdate(&discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{
			GuildID:   "1",
			ChannelID: "2",
			UserID:    testBotID.String(),
			SessionID: "session",
		},
	})

	select {
	case <-done:
		t.Fatal("expected join to wait for voice server update")
	case <-time.After(20 * time.Millisecond):
	}

	voice.OnVoiceServerUpdate(&discordgo.VoiceServerUpdate{
		GuildID:  "1",
		Token:    "token",
		Endpoint: "endpoint",
	})

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected join to complete")
	}

	calls := gateway.recorded()
	if len(calls) != 1 || calls[0] != (voiceStateCall{"1", "2", true}) {
		t.Errorf("unexpected gateway calls: %v", calls)
	}
}

func TestLavalinkVoice_JoinIgnoresOtherUsers(t *testing.T) {
	gateway := newMockVoiceStateUpdater()
	voice := newLavalinkVoice(gateway, testBotID, false)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	go func() {
		<-gateway.called
		voice.OnVoiceStateUpdate(&discordgo.VoiceStateUpdate{
			VoiceState: &discordgo.VoiceState{GuildID: "1", ChannelID: "2", UserID: "123"},
		})
		voice.OnVoiceServerUpdate(&discordgo.VoiceServerUpdate{GuildID: "1"})
	}()

	_, err := voice.Channel(snowflake.ID(1), snowflake.ID(2)).Join(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestLavalinkVoice_JoinGatewayError(t *testing.T) {
	gateway := newMockVoiceStateUpdater()
	gateway.err = errors.New("not connected to gateway")
	voice := newLavalinkVoice(gateway, testBotID, false)

	_, err := voice.Channel(snowflake.ID(1), snowflake.ID(2)).Join(context.Background())
	if !errors.Is(err, gateway.err) {
		t.Errorf("expected wrapped gateway error, got %v", err)
	}
}

func TestLavalinkHandle_DisconnectLeavesChannel(t *testing.T) {
	gateway := newMockVoiceStateUpdater()
	voice := newLavalinkVoice(gateway, testBotID, false)
	handle := &lavalinkHandle{voice: voice, guildID: snowflake.ID(1)}

	calls := 0
	handle.OnActivity(func() { calls++ })

	if err := handle.Disconnect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := gateway.recorded()
	if len(got) != 1 || got[0].guildID != "1" || got[0].channelID != "" {
		t.Errorf("expected leave for guild 1, got %v", got)
	}

	// Activity listener is dropped with the connection
	voice.reportActivity(snowflake.ID(1))
	if calls != 0 {
		t.Errorf("expected no activity after disconnect, got %d", calls)
	}
}

func TestLavalinkHandle_StaleDisconnectKeepsNewerListener(t *testing.T) {
	voice := newLavalinkVoice(newMockVoiceStateUpdater(), testBotID, false)
	oldHandle := &lavalinkHandle{voice: voice, guildID: snowflake.ID(1)}
	newHandle := &lavalinkHandle{voice: voice, guildID: snowflake.ID(1)}

	oldHandle.OnActivity(func() {})
	calls := 0
	newHandle.OnActivity(func() { calls++ })

	if err := oldHandle.Disconnect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	voice.reportActivity(snowflake.ID(1))
	if calls != 1 {
		t.Errorf("expected newer listener to survive, got %d calls", calls)
	}
}

func TestLavalinkHandle_ReportsActivity(t *testing.T) {
	voice := newLavalinkVoice(newMockVoiceStateUpdater(), testBotID, false)
	handle := &lavalinkHandle{voice: voice, guildID: snowflake.ID(1)}

	calls := 0
	handle.OnActivity(func() { calls++ })

	voice.reportActivity(snowflake.ID(1))
	voice.reportActivity(snowflake.ID(2))

	if calls != 1 {
		t.Errorf("expected 1 activity call, got %d", calls)
	}
}

func TestVoiceEventBuffer(t *testing.T) {
	buffer := &voiceEventBuffer{}
	channelID := snowflake.ID(2)

	if buffer.setVoiceServer("token", "endpoint") {
		t.Error("expected buffer to wait for voice state")
	}
	if !buffer.setVoiceState(&channelID, "session") {
		t.Fatal("expected buffer to be ready with both events")
	}

	gotChannel, sessionID, token, endpoint := buffer.drain()
	if gotChannel == nil || *gotChannel != channelID {
		t.Errorf("expected channel %d, got %v", channelID, gotChannel)
	}
	if sessionID != "session" || token != "token" || endpoint != "endpoint" {
		t.Errorf("unexpected drained data: %q %q %q", sessionID, token, endpoint)
	}

	// Drained buffer starts over
	if buffer.setVoiceState(&channelID, "session") {
		t.Error("expected drained buffer to wait for voice server again")
	}
}

func TestPendingVoiceConnection(t *testing.T) {
	pending := newPendingVoiceConnection()

	pending.onEvent(true)
	select {
	case <-pending.ready:
		t.Fatal("expected pending connection to wait for voice server")
	default:
	}

	pending.onEvent(false)
	pending.onEvent(false) // duplicate events must not panic

	select {
	case <-pending.ready:
	default:
		t.Fatal("expected pending connection to be ready")
	}
}
