// Package policy attaches Lua-scripted stage policies to the event bus.
//
// A policy script may define any of three global functions:
//
//	allow_add(kind, key, stage) -> boolean
//	allow_remove(kind, key, stage) -> boolean
//	override_check(kind, key, stage, has) -> boolean
//
// allow_* returning false cancels the pre-event; override_check replaces the
// result of a stage check. Scripts run synchronously on the publisher's
// goroutine in file-name order.
package policy

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Shopify/go-lua"

	"github.com/louisbranch/gamestages/internal/event"
	"github.com/louisbranch/gamestages/internal/stage"
)

// Engine holds the loaded policy scripts.
type Engine struct {
	scripts []*script
	logf    func(format string, args ...any)
}

// script is one loaded policy file. The Lua state is single-threaded; the
// mutex serializes calls from concurrent stage checks.
type script struct {
	name  string
	state *lua.State
	mu    sync.Mutex

	hasAllowAdd      bool
	hasAllowRemove   bool
	hasOverrideCheck bool
}

// LoadDir loads every .lua file in dir, in lexical order. A directory with
// no scripts yields an empty engine.
func LoadDir(dir string) (*Engine, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read policy dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".lua") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	engine := &Engine{logf: log.Printf}
	for _, file := range files {
		loaded, err := loadScript(filepath.Join(dir, file))
		if err != nil {
			return nil, err
		}
		engine.scripts = append(engine.scripts, loaded)
	}
	return engine, nil
}

func loadScript(path string) (*script, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load policy %s: %w", filepath.Base(path), err)
	}
	if err := state.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("run policy %s: %w", filepath.Base(path), err)
	}

	loaded := &script{name: filepath.Base(path), state: state}
	loaded.hasAllowAdd = hasGlobalFunction(state, "allow_add")
	loaded.hasAllowRemove = hasGlobalFunction(state, "allow_remove")
	loaded.hasOverrideCheck = hasGlobalFunction(state, "override_check")
	return loaded, nil
}

func hasGlobalFunction(state *lua.State, name string) bool {
	state.Global(name)
	defined := state.IsFunction(-1)
	state.Pop(1)
	return defined
}

// Len returns the number of loaded scripts.
func (e *Engine) Len() int {
	return len(e.scripts)
}

// Attach registers the engine's listeners on the bus. Policies veto
// pre-events and override check results; post events are not delivered to
// scripts.
func (e *Engine) Attach(bus *event.Bus) {
	bus.Subscribe(event.TypePreAdd, func(_ context.Context, evt event.Event) {
		pre := evt.(*event.PreAdd)
		if !e.allow("allow_add", func(s *script) bool { return s.hasAllowAdd }, pre.Identity, pre.Stage) {
			pre.Cancel()
		}
	})
	bus.Subscribe(event.TypePreRemove, func(_ context.Context, evt event.Event) {
		pre := evt.(*event.PreRemove)
		if !e.allow("allow_remove", func(s *script) bool { return s.hasAllowRemove }, pre.Identity, pre.Stage) {
			pre.Cancel()
		}
	})
	bus.Subscribe(event.TypeCheck, func(_ context.Context, evt event.Event) {
		check := evt.(*event.Check)
		check.SetHas(e.overrideCheck(check.Identity, check.Stage, check.Has()))
	})
}

// allow asks every matching script; the first false verdict wins. Script
// errors are logged and do not veto.
func (e *Engine) allow(fn string, match func(*script) bool, identity stage.Identity, name stage.Name) bool {
	for _, s := range e.scripts {
		if !match(s) {
			continue
		}
		verdict, err := s.callBool(fn, identity, name)
		if err != nil {
			e.logf("policy %s %s: %v", s.name, fn, err)
			continue
		}
		if !verdict {
			return false
		}
	}
	return true
}

// overrideCheck folds the check result through every matching script in
// order, feeding each script the previous result.
func (e *Engine) overrideCheck(identity stage.Identity, name stage.Name, has bool) bool {
	for _, s := range e.scripts {
		if !s.hasOverrideCheck {
			continue
		}
		verdict, err := s.callCheck(identity, name, has)
		if err != nil {
			e.logf("policy %s override_check: %v", s.name, err)
			continue
		}
		has = verdict
	}
	return has
}

func (s *script) callBool(fn string, identity stage.Identity, name stage.Name) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Global(fn)
	s.state.PushString(string(identity.Kind()))
	s.state.PushString(identity.Key())
	s.state.PushString(string(name))
	if err := s.state.ProtectedCall(3, 1, 0); err != nil {
		return true, err
	}
	verdict := s.state.ToBoolean(-1)
	s.state.Pop(1)
	return verdict, nil
}

func (s *script) callCheck(identity stage.Identity, name stage.Name, has bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Global("override_check")
	s.state.PushString(string(identity.Kind()))
	s.state.PushString(identity.Key())
	s.state.PushString(string(name))
	s.state.PushBoolean(has)
	if err := s.state.ProtectedCall(4, 1, 0); err != nil {
		return has, err
	}
	verdict := s.state.ToBoolean(-1)
	s.state.Pop(1)
	return verdict, nil
}
