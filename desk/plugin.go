package desk

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zjrosen/frontdesk/observe"
)

// ErrCapabilityMissing is returned by Call and ComputedValue for names
// no plugin registered.
var ErrCapabilityMissing = errors.New("capability not found")

// Disposer tears down whatever a plugin's Install set up. Disposers
// run exactly once, on the first Clear, in install order.
type Disposer func()

// Method is a plugin-contributed callable. The owning desk is bound as
// the first argument at call time.
type Method[T any] func(d *Desk[T], args ...any) (any, error)

// Computed is a plugin-contributed derived property. The getter re-runs
// against current desk state on every access; the host never memoizes
// results.
type Computed[T any] func(d *Desk[T]) any

// Plugin extends a desk with lifecycle hooks and capabilities. All
// fields but Name are optional. Before-hooks veto an operation by
// returning false; after-hooks observe operations that succeeded.
//
// Hook panics are not recovered: they propagate to the caller and
// abort the in-flight operation.
type Plugin[T any] struct {
	Name    string
	Version string

	// Install runs at desk construction, in declaration order. An
	// error aborts construction entirely. The returned disposer, if
	// any, runs on the first Clear.
	Install func(d *Desk[T]) (Disposer, error)

	BeforeCheckIn  func(id Key, data T) bool
	OnCheckIn      func(item Item[T])
	BeforeUpdate   func(id Key, patch T) bool
	OnUpdate       func(previous T, item Item[T])
	BeforeCheckOut func(id Key) bool
	OnCheckOut     func(item Item[T])

	// Methods and Computed are spliced into the desk's capability
	// table. Names must be unique across all installed plugins.
	Methods  map[string]Method[T]
	Computed map[string]Computed[T]
}

// Hook labels used in observability records.
const (
	hookBeforeCheckIn  = "beforeCheckIn"
	hookOnCheckIn      = "onCheckIn"
	hookBeforeUpdate   = "beforeUpdate"
	hookOnUpdate       = "onUpdate"
	hookBeforeCheckOut = "beforeCheckOut"
	hookOnCheckOut     = "onCheckOut"
)

type namedDisposer struct {
	plugin string
	fn     Disposer
}

// install wires one plugin during New.
func (d *Desk[T]) install(p Plugin[T]) error {
	if p.Name == "" {
		return errors.New("plugin name is required")
	}
	for name := range p.Methods {
		if _, exists := d.methods[name]; exists {
			return fmt.Errorf("plugin %q: duplicate method %q", p.Name, name)
		}
	}
	for name := range p.Computed {
		if _, exists := d.computed[name]; exists {
			return fmt.Errorf("plugin %q: duplicate computed property %q", p.Name, name)
		}
	}

	if p.Install != nil {
		disposer, err := p.Install(d)
		if err != nil {
			return fmt.Errorf("install plugin %q: %w", p.Name, err)
		}
		if disposer != nil {
			d.disposers = append(d.disposers, namedDisposer{plugin: p.Name, fn: disposer})
		}
	}

	for name, method := range p.Methods {
		d.methods[name] = method
	}
	for name, getter := range p.Computed {
		d.computed[name] = getter
	}
	d.plugins = append(d.plugins, p)

	d.emitRecord(observe.Record{Type: observe.TypePluginInstall, PluginName: p.Name})
	return nil
}

// Call invokes a plugin-contributed method with the desk bound as its
// first argument. Unknown names return ErrCapabilityMissing.
func (d *Desk[T]) Call(name string, args ...any) (any, error) {
	method, ok := d.methods[name]
	if !ok {
		return nil, fmt.Errorf("method %q: %w", name, ErrCapabilityMissing)
	}
	return method(d, args...)
}

// ComputedValue evaluates a plugin-contributed derived property against
// the current desk state. Unknown names return ErrCapabilityMissing.
func (d *Desk[T]) ComputedValue(name string) (any, error) {
	getter, ok := d.computed[name]
	if !ok {
		return nil, fmt.Errorf("computed property %q: %w", name, ErrCapabilityMissing)
	}
	return getter(d), nil
}

// Capabilities lists the registered method and computed-property names,
// sorted. Capability tables are immutable after construction.
func (d *Desk[T]) Capabilities() []string {
	names := make([]string, 0, len(d.methods)+len(d.computed))
	for name := range d.methods {
		names = append(names, name)
	}
	for name := range d.computed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Desk[T]) recordHook(plugin, hook string, id Key, start time.Time) {
	if d.sink == nil {
		return
	}
	d.emitRecord(observe.Record{
		Type:       observe.TypeHook,
		PluginName: plugin,
		Hook:       hook,
		ChildID:    string(id),
		DurationMS: float64(time.Since(start).Microseconds()) / 1000.0,
	})
}

// Before-hooks run plugins first, in install order, then the owner's
// hook; the first false short-circuits the rest and the operation.

func (d *Desk[T]) runBeforeCheckIn(id Key, data T) bool {
	for i := range d.plugins {
		p := &d.plugins[i]
		if p.BeforeCheckIn == nil {
			continue
		}
		start := time.Now()
		ok := p.BeforeCheckIn(id, data)
		d.recordHook(p.Name, hookBeforeCheckIn, id, start)
		if !ok {
			return false
		}
	}
	if d.beforeCheckIn != nil {
		return d.beforeCheckIn(id, data)
	}
	return true
}

func (d *Desk[T]) runBeforeUpdate(id Key, patch T) bool {
	for i := range d.plugins {
		p := &d.plugins[i]
		if p.BeforeUpdate == nil {
			continue
		}
		start := time.Now()
		ok := p.BeforeUpdate(id, patch)
		d.recordHook(p.Name, hookBeforeUpdate, id, start)
		if !ok {
			return false
		}
	}
	return true
}

func (d *Desk[T]) runBeforeCheckOut(id Key) bool {
	for i := range d.plugins {
		p := &d.plugins[i]
		if p.BeforeCheckOut == nil {
			continue
		}
		start := time.Now()
		ok := p.BeforeCheckOut(id)
		d.recordHook(p.Name, hookBeforeCheckOut, id, start)
		if !ok {
			return false
		}
	}
	if d.beforeCheckOut != nil {
		return d.beforeCheckOut(id)
	}
	return true
}

// After-hooks run plugins first then the owner, always, only on
// success; they cannot veto.

func (d *Desk[T]) runAfterCheckIn(item Item[T]) {
	for i := range d.plugins {
		p := &d.plugins[i]
		if p.OnCheckIn == nil {
			continue
		}
		start := time.Now()
		p.OnCheckIn(item)
		d.recordHook(p.Name, hookOnCheckIn, item.ID, start)
	}
	if d.onCheckIn != nil {
		d.onCheckIn(item)
	}
}

func (d *Desk[T]) runAfterUpdate(previous T, item Item[T]) {
	for i := range d.plugins {
		p := &d.plugins[i]
		if p.OnUpdate == nil {
			continue
		}
		start := time.Now()
		p.OnUpdate(previous, item)
		d.recordHook(p.Name, hookOnUpdate, item.ID, start)
	}
}

func (d *Desk[T]) runAfterCheckOut(item Item[T]) {
	for i := range d.plugins {
		p := &d.plugins[i]
		if p.OnCheckOut == nil {
			continue
		}
		start := time.Now()
		p.OnCheckOut(item)
		d.recordHook(p.Name, hookOnCheckOut, item.ID, start)
	}
	if d.onCheckOut != nil {
		d.onCheckOut(item)
	}
}
