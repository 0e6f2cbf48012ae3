package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

// stubModule is a test double for Module
type stubModule struct {
	name          string
	commands      []*discordgo.ApplicationCommand
	handlers      map[string]InteractionHandler
	eventHandlers []EventHandler
	initErr       error
	shutErr       error
	configErr     error

	configLoaded bool
	initDeps     *ModuleDependencies
	shutdown     bool
}

func (m *stubModule) Name() string                                   { return m.name }
func (m *stubModule) Commands() []*discordgo.ApplicationCommand      { return m.commands }
func (m *stubModule) CommandHandlers() map[string]InteractionHandler { return m.handlers }
func (m *stubModule) EventHandlers() []EventHandler                  { return m.eventHandlers }

func (m *stubModule) Init(deps ModuleDependencies) error {
	m.initDeps = &deps
	return m.initErr
}

func (m *stubModule) Shutdown() error {
	m.shutdown = true
	return m.shutErr
}

// configurableStubModule also implements ConfigurableModule.
type configurableStubModule struct {
	stubModule
}

func (m *configurableStubModule) LoadConfig() error {
	m.configLoaded = true
	return m.configErr
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(&stubModule{name: "test-module"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	modules := reg.Modules()
	if len(modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(modules))
	}
	if modules[0].Name() != "test-module" {
		t.Errorf("expected module name %q, got %q", "test-module", modules[0].Name())
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(&stubModule{name: "voice"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Register(&stubModule{name: "voice"}); err == nil {
		t.Error("expected error for duplicate module name")
	}
	if len(reg.Modules()) != 1 {
		t.Errorf("expected 1 module, got %d", len(reg.Modules()))
	}
}

func TestRegistry_ModulesReturnsSnapshot(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(&stubModule{name: "module-1"})

	modules := reg.Modules()
	_ = reg.Register(&stubModule{name: "module-2"})

	if len(modules) != 1 {
		t.Errorf("expected snapshot to have 1 module, got %d", len(modules))
	}
}

func TestGlobalRegistry(t *testing.T) {
	ResetGlobalRegistry()
	defer ResetGlobalRegistry()

	Register(&stubModule{name: "global-test"})

	modules := Modules()
	if len(modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(modules))
	}
	if modules[0].Name() != "global-test" {
		t.Errorf("expected module name %q, got %q", "global-test", modules[0].Name())
	}

	defer func() {
		if recover() == nil {
			t.Error("expected duplicate global registration to panic")
		}
	}()
	Register(&stubModule{name: "global-test"})
}
