package routing

import "sync/atomic"

type snapshot struct {
	engine *Engine
	source string
}

// Holder resolves through the current Engine and lets the engine be replaced
// while requests are served. Source names where its routing document came from.
type Holder struct {
	current atomic.Pointer[snapshot]
}

func NewHolder(engine *Engine, source string) *Holder {
	h := &Holder{}
	h.Store(engine, source)
	return h
}

// Store replaces the engine. In-flight resolutions finish on the old one.
func (h *Holder) Store(engine *Engine, source string) {
	h.current.Store(&snapshot{engine: engine, source: source})
}

func (h *Holder) Engine() *Engine {
	return h.current.Load().engine
}

func (h *Holder) Source() string {
	return h.current.Load().source
}

func (h *Holder) Resolve(in *RouteInput) (Target, error) {
	return h.current.Load().engine.Resolve(in)
}
