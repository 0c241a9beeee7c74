package keyboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/modlayers/internal/engine"
	"github.com/roach88/modlayers/internal/ir"
	"github.com/roach88/modlayers/internal/keys"
)

// InjectedAddr is recorded for injected events, which have no physical key.
var InjectedAddr = keys.Addr(0xFF, 0xFF)

// Keyboard runs the modifier-layer engine inside a simulated scan pipeline.
// It implements engine.Device.
type Keyboard struct {
	config *ir.Config
	layers *LayerStack
	matrix *Matrix
	report Report
	engine *engine.Engine
	clock  *engine.Clock

	pressed  []bool
	released keys.ModSet

	logger  *slog.Logger
	onEvent func(ir.EventRecord)
	onCycle func(ir.CycleRecord)
}

// Option configures a Keyboard.
type Option func(*Keyboard)

// WithLogger sets the logger shared with the engine.
func WithLogger(l *slog.Logger) Option {
	return func(kb *Keyboard) {
		kb.logger = l
	}
}

// WithClock numbers cycles from c. Replay uses it to resume numbering.
func WithClock(c *engine.Clock) Option {
	return func(kb *Keyboard) {
		kb.clock = c
	}
}

// WithEventHook calls fn for every recorded event, in processing order.
func WithEventHook(fn func(ir.EventRecord)) Option {
	return func(kb *Keyboard) {
		kb.onEvent = fn
	}
}

// WithCycleHook calls fn once per completed cycle.
func WithCycleHook(fn func(ir.CycleRecord)) Option {
	return func(kb *Keyboard) {
		kb.onCycle = fn
	}
}

// New creates a keyboard for cfg with every key up and only layer 0 active.
func New(cfg *ir.Config, opts ...Option) (*Keyboard, error) {
	if cfg == nil {
		return nil, fmt.Errorf("keyboard: config is required")
	}

	kb := &Keyboard{
		config:  cfg,
		layers:  NewLayerStack(cfg.Keymap),
		matrix:  NewMatrix(cfg.Geometry),
		clock:   engine.NewClock(),
		pressed: make([]bool, cfg.Geometry.Size()),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(kb)
	}

	eng, err := engine.New(cfg.Overlays, cfg.Geometry, kb.layers, kb,
		engine.WithLogger(kb.logger),
		engine.WithClock(kb.clock),
	)
	if err != nil {
		return nil, fmt.Errorf("keyboard: %w", err)
	}
	kb.engine = eng
	return kb, nil
}

// MaskKey suppresses addr for the current cycle.
func (kb *Keyboard) MaskKey(addr keys.KeyAddr) { kb.matrix.MaskKey(addr) }

// ReleaseModifier clears code from the outgoing report.
func (kb *Keyboard) ReleaseModifier(code keys.KeyCode) {
	kb.report.ReleaseModifier(code)
	kb.released |= keys.ModOf(code)
}

// Cycle runs one scan-process-report-commit pass. down lists the addresses
// held during this scan; injected keys are processed after the matrix scan.
func (kb *Keyboard) Cycle(down []keys.KeyAddr, injected []keys.Key) (ir.CycleRecord, error) {
	g := kb.config.Geometry
	now := make([]bool, g.Size())
	for _, a := range down {
		if !g.Contains(a) {
			return ir.CycleRecord{}, fmt.Errorf("address %s outside %dx%d matrix", a, g.Rows, g.Cols)
		}
		now[g.Index(a)] = true
	}

	kb.matrix.Clear()
	kb.report.Clear()
	kb.released = keys.ModNone

	rec := ir.CycleRecord{Cycle: kb.clock.Current(), Injected: injected}

	g.Each(func(addr keys.KeyAddr) {
		i := g.Index(addr)
		if now[i] {
			rec.Down = append(rec.Down, addr)
		}
		state := keys.Transition(kb.pressed[i], now[i])
		if state.Idle() {
			return
		}
		if state.ToggledOn() {
			kb.layers.Latch(addr)
		}
		mapped := kb.layers.Lookup(addr)
		res := kb.engine.OnKeyswitchEvent(mapped, addr, state)
		if res == engine.ResultOK && state.Pressed() && !kb.matrix.IsMasked(addr) {
			kb.press(mapped)
		}
		rec.Events = append(rec.Events, kb.emit(&rec, addr, mapped, state, res))
	})

	for _, k := range injected {
		state := keys.StateToggledOn | keys.Injected
		res := kb.engine.OnKeyswitchEvent(k, InjectedAddr, state)
		if res == engine.ResultOK {
			kb.press(k)
		}
		rec.Events = append(rec.Events, kb.emit(&rec, InjectedAddr, k, state, res))
	}

	kb.engine.BeforeReportingState()
	rec.Report = kb.report.Bytes()
	rec.Released = kb.released
	rec.ActiveLayers = kb.layers.ActiveLayers()

	kb.engine.AfterEachCycle()
	locks := kb.engine.Locks()
	rec.LockedHeld = locks.Held.Current
	rec.LockedUnheld = locks.Unheld.Current
	rec.PressedDirectly = locks.WasPressedDirectly

	copy(kb.pressed, now)

	if masked := kb.matrix.Masked(); len(masked) > 0 && kb.logger.Enabled(context.Background(), slog.LevelDebug) {
		kb.logger.Debug("cycle masked keys", "cycle", rec.Cycle, "count", len(masked))
	}
	if kb.onCycle != nil {
		kb.onCycle(rec)
	}
	return rec, nil
}

func (kb *Keyboard) press(k keys.Key) {
	if !kb.report.Press(k) {
		kb.logger.Warn("report full, key dropped", "key", k.String())
	}
}

func (kb *Keyboard) emit(rec *ir.CycleRecord, addr keys.KeyAddr, k keys.Key, state keys.KeyState, res engine.Result) ir.EventRecord {
	ev := ir.EventRecord{
		Cycle:  rec.Cycle,
		Seq:    int64(len(rec.Events)),
		Addr:   addr,
		Key:    k,
		State:  state,
		Result: res.String(),
	}
	if kb.onEvent != nil {
		kb.onEvent(ev)
	}
	return ev
}

// Engine returns the engine driven by this keyboard.
func (kb *Keyboard) Engine() *engine.Engine { return kb.engine }

// Layers returns the layer stack.
func (kb *Keyboard) Layers() *LayerStack { return kb.layers }

// Config returns the compiled configuration.
func (kb *Keyboard) Config() *ir.Config { return kb.config }
