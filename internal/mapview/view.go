package mapview

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/paulmach/orb"

	"github.com/joeblew999/geoview/internal/geodata"
)

// Command operations understood by the viewer page.
const (
	OpCreate        = "create"
	OpDispose       = "dispose"
	OpAddSource     = "addSource"
	OpAddLayer      = "addLayer"
	OpRemoveLayer   = "removeLayer"
	OpRemoveSource  = "removeSource"
	OpFitBounds     = "fitBounds"
	OpSetVisibility = "setVisibility"
)

// Command is one map engine call, tagged with the map generation it targets.
// The page drops commands whose generation does not match its current map.
type Command struct {
	Op         string          `json:"op"`
	Generation uint64          `json:"generation"`
	ID         string          `json:"id,omitempty"`
	Style      string          `json:"style,omitempty"`
	Center     *orb.Point      `json:"center,omitempty"`
	Zoom       float64         `json:"zoom,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Layer      *Layer          `json:"layer,omitempty"`
	Bounds     *geodata.Bounds `json:"bounds,omitempty"`
	Options    *FitOptions     `json:"options,omitempty"`
	Visible    *bool           `json:"visible,omitempty"`
}

// Emitter receives commands as the view changes.
type Emitter func(Command)

// Viewport is the last fit request sent to the map.
type Viewport struct {
	Bounds  geodata.Bounds `json:"bounds"`
	Options FitOptions     `json:"options"`
}

// LayerState is a layer and its current visibility.
type LayerState struct {
	Layer
	Visible bool `json:"visible"`
}

// State is a point-in-time copy of the view.
type State struct {
	Style      string       `json:"style" doc:"Active basemap style URL"`
	Generation uint64       `json:"generation" doc:"Increments each time the map is recreated"`
	Center     orb.Point    `json:"center" doc:"Initial center as [lon, lat]"`
	Zoom       float64      `json:"zoom" doc:"Initial zoom"`
	Sources    []string     `json:"sources" doc:"Registered source IDs"`
	Layers     []LayerState `json:"layers" doc:"Registered layers in draw order"`
	Viewport   *Viewport    `json:"viewport,omitempty" doc:"Last viewport fit request"`
	Closed     bool         `json:"closed" doc:"Whether the map has been disposed"`
}

// View owns one map instance. It is safe for concurrent use.
type View struct {
	mu         sync.RWMutex
	emit       Emitter
	style      string
	center     orb.Point
	zoom       float64
	generation uint64
	sources    map[string]json.RawMessage
	layers     []Layer
	hidden     map[string]bool
	viewport   *Viewport
	closed     bool
}

// NewView creates the map with the given style and initial camera.
// emit may be nil.
func NewView(style string, center orb.Point, zoom float64, emit Emitter) *View {
	if emit == nil {
		emit = func(Command) {}
	}
	v := &View{
		emit:       emit,
		style:      style,
		center:     center,
		zoom:       zoom,
		generation: 1,
	}
	v.reset()
	v.emit(v.createCommand())
	return v
}

func (v *View) reset() {
	v.sources = make(map[string]json.RawMessage)
	v.layers = nil
	v.hidden = make(map[string]bool)
	v.viewport = nil
}

func (v *View) createCommand() Command {
	center := v.center
	return Command{
		Op:         OpCreate,
		Generation: v.generation,
		Style:      v.style,
		Center:     &center,
		Zoom:       v.zoom,
	}
}

// Style returns the active basemap style URL.
func (v *View) Style() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.style
}

// Generation returns the current map generation.
func (v *View) Generation() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.generation
}

// SetStyle disposes the current map and creates a new one with style.
// Sources and layers do not survive the swap.
func (v *View) SetStyle(style string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	v.emit(Command{Op: OpDispose, Generation: v.generation})
	v.generation++
	v.style = style
	v.reset()
	v.emit(v.createCommand())
	return nil
}

// Close disposes the map. It is safe to call more than once.
func (v *View) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	v.closed = true
	v.reset()
	v.emit(Command{Op: OpDispose, Generation: v.generation})
	return nil
}

// HasSource reports whether a source with id is registered.
func (v *View) HasSource(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.sources[id]
	return ok
}

// HasLayer reports whether a layer with id is registered.
func (v *View) HasLayer(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.layerIndex(id) >= 0
}

func (v *View) layerIndex(id string) int {
	for i, l := range v.layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// AddSource registers GeoJSON data under id.
func (v *View) AddSource(id string, data json.RawMessage) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if _, ok := v.sources[id]; ok {
		return fmt.Errorf("%w: %s", ErrSourceExists, id)
	}
	v.sources[id] = data
	v.emit(Command{Op: OpAddSource, Generation: v.generation, ID: id, Data: data})
	return nil
}

// AddLayer registers a layer on top of the existing ones.
func (v *View) AddLayer(layer Layer) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if v.layerIndex(layer.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrLayerExists, layer.ID)
	}
	if _, ok := v.sources[layer.Source]; !ok {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, layer.Source)
	}
	v.layers = append(v.layers, layer)
	l := layer
	v.emit(Command{Op: OpAddLayer, Generation: v.generation, ID: layer.ID, Layer: &l})
	return nil
}

// RemoveLayer unregisters a layer.
func (v *View) RemoveLayer(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	i := v.layerIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLayerNotFound, id)
	}
	v.layers = append(v.layers[:i], v.layers[i+1:]...)
	delete(v.hidden, id)
	v.emit(Command{Op: OpRemoveLayer, Generation: v.generation, ID: id})
	return nil
}

// RemoveSource unregisters a source. Layers using it must be removed first.
func (v *View) RemoveSource(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if _, ok := v.sources[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}
	for _, l := range v.layers {
		if l.Source == id {
			return fmt.Errorf("%w: %s (layer %s)", ErrSourceInUse, id, l.ID)
		}
	}
	delete(v.sources, id)
	v.emit(Command{Op: OpRemoveSource, Generation: v.generation, ID: id})
	return nil
}

// FitBounds asks the map to frame b.
func (v *View) FitBounds(b geodata.Bounds, opts FitOptions) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if b.IsEmpty() {
		return ErrEmptyBounds
	}
	v.viewport = &Viewport{Bounds: b, Options: opts}
	bounds, o := b, opts
	v.emit(Command{Op: OpFitBounds, Generation: v.generation, Bounds: &bounds, Options: &o})
	return nil
}

// SetVisibility shows or hides a layer.
func (v *View) SetVisibility(id string, visible bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if v.layerIndex(id) < 0 {
		return fmt.Errorf("%w: %s", ErrLayerNotFound, id)
	}
	if visible {
		delete(v.hidden, id)
	} else {
		v.hidden[id] = true
	}
	vis := visible
	v.emit(Command{Op: OpSetVisibility, Generation: v.generation, ID: id, Visible: &vis})
	return nil
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() State {
	v.mu.RLock()
	defer v.mu.RUnlock()

	st := State{
		Style:      v.style,
		Generation: v.generation,
		Center:     v.center,
		Zoom:       v.zoom,
		Sources:    make([]string, 0, len(v.sources)),
		Layers:     make([]LayerState, 0, len(v.layers)),
		Closed:     v.closed,
	}
	for id := range v.sources {
		st.Sources = append(st.Sources, id)
	}
	slices.Sort(st.Sources)
	for _, l := range v.layers {
		st.Layers = append(st.Layers, LayerState{Layer: l, Visible: !v.hidden[l.ID]})
	}
	if v.viewport != nil {
		vp := *v.viewport
		st.Viewport = &vp
	}
	return st
}

// Replay returns the commands that rebuild the current map from scratch,
// for a page that connects after the fact.
func (v *View) Replay() []Command {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil
	}
	cmds := []Command{v.createCommand()}
	added := make(map[string]bool, len(v.sources))
	for _, l := range v.layers {
		if !added[l.Source] {
			cmds = append(cmds, Command{Op: OpAddSource, Generation: v.generation, ID: l.Source, Data: v.sources[l.Source]})
			added[l.Source] = true
		}
		layer := l
		cmds = append(cmds, Command{Op: OpAddLayer, Generation: v.generation, ID: l.ID, Layer: &layer})
		if v.hidden[l.ID] {
			hidden := false
			cmds = append(cmds, Command{Op: OpSetVisibility, Generation: v.generation, ID: l.ID, Visible: &hidden})
		}
	}
	for id, data := range v.sources {
		if !added[id] {
			cmds = append(cmds, Command{Op: OpAddSource, Generation: v.generation, ID: id, Data: data})
		}
	}
	if v.viewport != nil {
		bounds, opts := v.viewport.Bounds, v.viewport.Options
		cmds = append(cmds, Command{Op: OpFitBounds, Generation: v.generation, Bounds: &bounds, Options: &opts})
	}
	return cmds
}
