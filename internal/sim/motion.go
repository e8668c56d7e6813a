// Package sim drives celestial motion: per-object motion models, a
// registry that repositions every tracked object for a simulation time,
// and the engine loop that ties the registry to the clock and catalog.
package sim

import (
	"fmt"
	"sync"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/stellarworks/universe-simulator/astro"
	"github.com/stellarworks/universe-simulator/model"
	"github.com/stellarworks/universe-simulator/timectrl"
)

// kmPerAU converts go-satellite kilometre output into scene units.
const kmPerAU = astro.KmPerParsec / astro.AUPerParsec

// MotionModel computes an object's position for a given simulation time.
type MotionModel interface {
	Position(simTime time.Time) (model.Position, error)
}

// PositionUpdater receives propagated positions. *catalog.Catalog
// satisfies it.
type PositionUpdater interface {
	UpdatePosition(id string, pos model.Position, distancePc float64) error
}

// StaticModel pins an object to a fixed position.
type StaticModel struct {
	pos model.Position
}

// NewStaticModel returns a model that always reports pos.
func NewStaticModel(pos model.Position) *StaticModel {
	return &StaticModel{pos: pos}
}

// Position for static motion returns the pinned position unchanged.
func (m *StaticModel) Position(simTime time.Time) (model.Position, error) {
	return m.pos, nil
}

// KeplerianModel propagates two-body orbital elements around the
// heliocentric origin. Output is in AU.
type KeplerianModel struct {
	elements model.OrbitalElements
}

// NewKeplerianModel constructs a model from orbital elements.
func NewKeplerianModel(el model.OrbitalElements) *KeplerianModel {
	return &KeplerianModel{elements: el}
}

// Position solves Kepler's equation for the elapsed time since J2000.
func (m *KeplerianModel) Position(simTime time.Time) (model.Position, error) {
	days := simTime.Sub(timectrl.J2000).Hours() / 24
	pos, err := astro.Propagate(m.elements, days)
	if err != nil {
		return model.Position{}, err
	}
	return model.Position{X: pos.X, Y: pos.Y, Z: pos.Z}, nil
}

// SGP4Model uses a TLE and SGP4 to position an Earth satellite. The
// geocentric kilometre output is rebased onto the scene's heliocentric
// AU frame through the origin callback.
type SGP4Model struct {
	sat    satellite.Satellite
	origin func(time.Time) model.Position
}

// NewSGP4FromTLE constructs an orbital model from TLE lines. origin may
// be nil, which leaves the satellite geocentric.
func NewSGP4FromTLE(line1, line2 string, origin func(time.Time) model.Position) *SGP4Model {
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &SGP4Model{sat: sat, origin: origin}
}

// Position propagates the satellite to the given simulation time.
// go-satellite works in kilometres; the scene works in AU.
func (m *SGP4Model) Position(simTime time.Time) (model.Position, error) {
	year, month, day := simTime.Date()
	hour, min, sec := simTime.Clock()

	posECI, _ := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	pos := model.Position{
		X: posECEF.X / kmPerAU,
		Y: posECEF.Y / kmPerAU,
		Z: posECEF.Z / kmPerAU,
	}
	if m.origin != nil {
		o := m.origin(simTime)
		pos.X += o.X
		pos.Y += o.Y
		pos.Z += o.Z
	}
	return pos, nil
}

// TLEFetcher resolves the TLE lines for an object. The default fetcher
// reads the lines stored on the object itself; a live implementation
// can swap in a Celestrak lookup.
type TLEFetcher func(obj *model.CelestialObject) (string, string)

// Option configures a Registry.
type Option func(*Registry)

// WithTLEFetcher overrides where satellite TLEs come from.
func WithTLEFetcher(fn TLEFetcher) Option {
	return func(r *Registry) { r.fetchTLE = fn }
}

// WithPositionUpdater sets the sink for propagated positions.
func WithPositionUpdater(u PositionUpdater) Option {
	return func(r *Registry) { r.updater = u }
}

// WithGeocentricOrigin sets the heliocentric position of the Earth used
// to rebase satellite output into the scene frame.
func WithGeocentricOrigin(fn func(time.Time) model.Position) Option {
	return func(r *Registry) { r.geoOrigin = fn }
}

// WithWorkers bounds how many goroutines propagate concurrently during
// UpdatePositions. Values below 2 mean sequential.
func WithWorkers(n int) Option {
	return func(r *Registry) { r.workers = n }
}

// WithFailureHandler installs a callback invoked when a single object
// fails to propagate. Failures do not abort the tick; without a handler
// they are silently skipped.
func WithFailureHandler(fn func(objectID string, err error)) Option {
	return func(r *Registry) { r.onFailure = fn }
}

// Registry tracks the motion model of every object under simulation and
// repositions them all for a given simulation time.
type Registry struct {
	mu     sync.RWMutex
	models map[string]MotionModel

	updater   PositionUpdater
	fetchTLE  TLEFetcher
	geoOrigin func(time.Time) model.Position
	onFailure func(objectID string, err error)
	workers   int
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		models: make(map[string]MotionModel),
		fetchTLE: func(obj *model.CelestialObject) (string, string) {
			return obj.TLELine1, obj.TLELine2
		},
		workers: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddObject registers an object, choosing a motion model from its
// MotionSource. Keplerian objects need elements; TLE objects need both
// lines resolvable through the fetcher.
func (r *Registry) AddObject(obj *model.CelestialObject) error {
	if obj == nil || obj.ID == "" {
		return fmt.Errorf("add object: missing id")
	}

	m, err := r.modelFor(obj)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[obj.ID]; exists {
		return fmt.Errorf("add object: %q already registered", obj.ID)
	}
	r.models[obj.ID] = m
	return nil
}

// RemoveObject drops an object from the registry.
func (r *Registry) RemoveObject(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[id]; !exists {
		return fmt.Errorf("remove object: %q not registered", id)
	}
	delete(r.models, id)
	return nil
}

// Len reports how many objects are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// Reset drops every registered object, used when the catalog is
// reloaded wholesale.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = make(map[string]MotionModel)
}

func (r *Registry) modelFor(obj *model.CelestialObject) (MotionModel, error) {
	switch obj.MotionSource {
	case model.MotionKeplerian:
		if obj.Elements == nil {
			return nil, fmt.Errorf("object %q: keplerian motion without elements", obj.ID)
		}
		return NewKeplerianModel(*obj.Elements), nil
	case model.MotionTLE:
		line1, line2 := r.fetchTLE(obj)
		if line1 == "" || line2 == "" {
			return nil, fmt.Errorf("object %q: no TLE available", obj.ID)
		}
		return NewSGP4FromTLE(line1, line2, r.geoOrigin), nil
	default:
		return NewStaticModel(obj.Position), nil
	}
}

type propagated struct {
	id   string
	pos  model.Position
	dist float64
	err  error
}

// UpdatePositions propagates every registered object to simTime and
// pushes the results to the position updater. Individual propagation
// failures go to the failure handler; the returned error covers updater
// failures only.
func (r *Registry) UpdatePositions(simTime time.Time) error {
	r.mu.RLock()
	ids := make([]string, 0, len(r.models))
	models := make([]MotionModel, 0, len(r.models))
	for id, m := range r.models {
		ids = append(ids, id)
		models = append(models, m)
	}
	workers := r.workers
	r.mu.RUnlock()

	results := make([]propagated, len(ids))
	if workers < 2 || len(ids) < 2 {
		for i := range ids {
			results[i] = propagateOne(ids[i], models[i], simTime)
		}
	} else {
		if workers > len(ids) {
			workers = len(ids)
		}
		var wg sync.WaitGroup
		next := make(chan int)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range next {
					results[i] = propagateOne(ids[i], models[i], simTime)
				}
			}()
		}
		for i := range ids {
			next <- i
		}
		close(next)
		wg.Wait()
	}

	var firstErr error
	for _, res := range results {
		if res.err != nil {
			if r.onFailure != nil {
				r.onFailure(res.id, res.err)
			}
			continue
		}
		if r.updater == nil {
			continue
		}
		if err := r.updater.UpdatePosition(res.id, res.pos, res.dist); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("update %q: %w", res.id, err)
		}
	}
	return firstErr
}

func propagateOne(id string, m MotionModel, simTime time.Time) propagated {
	pos, err := m.Position(simTime)
	if err != nil {
		return propagated{id: id, err: err}
	}
	norm := astro.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z}.Norm()
	return propagated{
		id:   id,
		pos:  pos,
		dist: norm / astro.AUPerParsec,
	}
}
