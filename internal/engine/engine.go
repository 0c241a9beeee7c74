package engine

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/modlayers/internal/ir"
	"github.com/roach88/modlayers/internal/keys"
)

// Layers is the layer stack the engine reads and toggles.
type Layers interface {
	// LookupActiveLayer returns the layer that supplies the key at addr.
	LookupActiveLayer(addr keys.KeyAddr) ir.LayerID
	IsActive(layer ir.LayerID) bool
	Activate(layer ir.LayerID)
	Deactivate(layer ir.LayerID)
}

// Device is the scanning device and outgoing report.
type Device interface {
	// MaskKey suppresses the physical key at addr for the current cycle.
	MaskKey(addr keys.KeyAddr)

	// ReleaseModifier clears a modifier bit in the outgoing report.
	ReleaseModifier(code keys.KeyCode)
}

// Result is the engine's verdict on a keyswitch event.
type Result uint8

const (
	// ResultOK lets the event continue down the pipeline.
	ResultOK Result = iota
	// ResultConsumed means the key was masked and the event must be dropped.
	ResultConsumed
)

func (r Result) String() string {
	if r == ResultConsumed {
		return ir.ResultConsumed
	}
	return ir.ResultOK
}

// Engine arbitrates modifier requirements between concurrently held keys and
// drives overlay layer visibility.
//
// INVARIANTS:
//   - overlays is a private copy; its order never changes after New
//   - rules is the sentinel-bounded rule count, never larger than len(overlays)
//   - unheld is sized from geometry at New and never reallocated
type Engine struct {
	overlays ir.OverlayTable
	rules    int

	layers Layers
	device Device

	unheld *RequirementStore
	locks  LockState
	clock  *Clock
	logger *slog.Logger
}

// Option configures optional engine parameters.
type Option func(*Engine)

// WithLogger sets the logger. Masking decisions and overlay toggles are
// logged at Debug.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock shares a cycle clock with the caller.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an engine for a device of the given geometry.
//
// The overlay table is copied. Scans stop at its first zero-mask sentinel or
// at its end, so a table without a sentinel is accepted.
func New(overlays ir.OverlayTable, geometry keys.Geometry, layers Layers, device Device, opts ...Option) (*Engine, error) {
	if geometry.Rows == 0 || geometry.Cols == 0 {
		return nil, newConfigError(ErrCodeInvalidGeometry, -1, "matrix must have at least one row and column, got %dx%d", geometry.Rows, geometry.Cols)
	}
	if layers == nil {
		return nil, newConfigError(ErrCodeMissingCollaborator, -1, "layer service is required")
	}
	if device == nil {
		return nil, newConfigError(ErrCodeMissingCollaborator, -1, "device is required")
	}

	table := overlays.Terminated()
	for i, r := range table.Rules() {
		if int(r.Original) >= ir.MaxLayers || int(r.Overlay) >= ir.MaxLayers {
			return nil, newConfigError(ErrCodeInvalidTable, i, "layer out of range (original=%d, overlay=%d)", r.Original, r.Overlay)
		}
	}

	e := &Engine{
		overlays: table,
		rules:    table.Len(),
		layers:   layers,
		device:   device,
		unheld:   NewRequirementStore(geometry),
		clock:    NewClock(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// OnKeyswitchEvent decides whether a keyswitch event passes or is masked.
//
// mapped is the key the layer stack resolved for addr. Idle, injected,
// synthetic and bare-modifier events never reach the conflict check.
func (e *Engine) OnKeyswitchEvent(mapped keys.Key, addr keys.KeyAddr, state keys.KeyState) Result {
	if state.Idle() || state.IsInjected() {
		return ResultOK
	}

	if state.Pressed() && mapped.IsBareModifier() {
		e.locks.PressedDirectly |= keys.ModOf(mapped.Code)
		return ResultOK
	}

	if mapped.Flags&keys.Synthetic != 0 {
		return ResultOK
	}

	if state.ToggledOn() {
		mask := e.overlayMaskFor(e.layers.LookupActiveLayer(addr))
		if !e.unheld.Set(addr, mask.Without(keys.FlagsToModSet(mapped.Flags))) {
			if e.debugEnabled() {
				e.debug("address outside matrix", slog.String("addr", addr.String()))
			}
			return ResultOK
		}
	} else if state.ToggledOff() {
		e.unheld.Clear(addr)
		return ResultOK
	}

	unheldRequired := e.unheld.Get(addr)
	heldRequired := unheldRequired.Complement().Intersect(e.locks.WasPressedDirectly)

	if unheldRequired.Intersects(e.locks.Held.Current) || heldRequired.Intersects(e.locks.Unheld.Current) {
		e.device.MaskKey(addr)
		if e.debugEnabled() {
			e.debug("masked contradicting key",
				slog.String("addr", addr.String()),
				slog.String("key", mapped.String()),
				slog.String("unheld_required", unheldRequired.String()),
				slog.String("held_required", heldRequired.String()),
				slog.String("locked_held", e.locks.Held.Current.String()),
				slog.String("locked_unheld", e.locks.Unheld.Current.String()),
			)
		}
		return ResultConsumed
	}

	e.locks.Held.Add(heldRequired)
	e.locks.Unheld.Add(unheldRequired)
	return ResultOK
}

// BeforeReportingState runs once per cycle before the report is sent. It
// forces off every modifier some held key needs unheld, then shows or hides
// each overlay layer according to the modifiers pressed directly this cycle.
func (e *Engine) BeforeReportingState() {
	release := e.locks.Unheld.Next
	for i := uint8(0); i < 8; i++ {
		if release&(1<<i) != 0 {
			e.device.ReleaseModifier(keys.FirstModifier + keys.KeyCode(i))
		}
	}

	for i := 0; i < e.rules; i++ {
		r := e.overlays[i]
		show := e.layers.IsActive(r.Original) && e.locks.PressedDirectly.Intersects(r.Mask)
		if e.debugEnabled() && show != e.layers.IsActive(r.Overlay) {
			e.debug("overlay toggled", slog.Int("rule", i), slog.Int("layer", int(r.Overlay)), slog.Bool("visible", show))
		}
		if show {
			e.layers.Activate(r.Overlay)
		} else {
			e.layers.Deactivate(r.Overlay)
		}
	}
}

// AfterEachCycle runs once per cycle after the report is sent and promotes
// this cycle's facts to current.
func (e *Engine) AfterEachCycle() {
	e.locks.Commit()
	e.clock.Next()
}

// overlayMaskFor scans the table for rules that show layer over an active
// original layer. Later matches overwrite earlier ones.
func (e *Engine) overlayMaskFor(layer ir.LayerID) keys.ModSet {
	var mask keys.ModSet
	for i := 0; i < e.rules; i++ {
		r := e.overlays[i]
		if r.Overlay == layer && e.layers.IsActive(r.Original) {
			mask = r.Mask
		}
	}
	return mask
}

func (e *Engine) debugEnabled() bool {
	return e.logger.Enabled(context.Background(), slog.LevelDebug)
}

// debug must be guarded by debugEnabled so attribute construction stays off
// the hot path.
func (e *Engine) debug(msg string, attrs ...slog.Attr) {
	e.logger.LogAttrs(context.Background(), slog.LevelDebug, msg,
		append(attrs, slog.Int64("cycle", e.clock.Current()))...)
}

// Locks returns a copy of the lock state.
func (e *Engine) Locks() LockState { return e.locks }

// Requirement returns the latched unheld requirement for addr.
func (e *Engine) Requirement(addr keys.KeyAddr) keys.ModSet { return e.unheld.Get(addr) }

// Cycle returns the number of completed cycles.
func (e *Engine) Cycle() int64 { return e.clock.Current() }

// Overlays returns the live overlay rules in table order.
func (e *Engine) Overlays() []ir.OverlayRule { return e.overlays[:e.rules] }
