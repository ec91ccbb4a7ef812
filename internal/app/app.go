// Package app wires the hand retargeting pipeline: a landmark source
// feeds per-frame pose solving, semantic mapping and adapter dispatch.
package app

import (
	"fmt"
	"log"
	"sync"

	"github.com/reatured/handvis/internal/adapter"
	"github.com/reatured/handvis/internal/calib"
	"github.com/reatured/handvis/internal/extract"
	"github.com/reatured/handvis/internal/filter"
	"github.com/reatured/handvis/internal/landmark"
	"github.com/reatured/handvis/internal/retarget"
	"github.com/reatured/handvis/internal/solver"
	"github.com/reatured/handvis/internal/store"
	"github.com/reatured/handvis/internal/trace"
)

// Pipeline constants.
const (
	// TrackingLossFrames is how many consecutive empty frames are
	// tolerated before filter history is cleared for both sides.
	TrackingLossFrames = 30
	// AdapterTimeoutMs bounds one external adapter invocation.
	AdapterTimeoutMs = 5000
)

// Config holds configuration options for the application.
type Config struct {
	Store      *store.Store
	AdapterDir string
	Model      *retarget.ModelSpec
	Extract    extract.Config
	Filter     filter.Config
	Tracer     trace.Tracer
}

// App orchestrates the retargeting pipeline and owns its per-side state.
type App struct {
	config     Config
	tr         trace.Tracer
	cal        *calib.Manager
	pose       solver.HandPoseSolver
	mapper     *retarget.Mapper
	target     adapter.Adapter
	adapterMgr *adapter.Manager

	source landmark.Source

	mu          sync.RWMutex
	enabled     bool
	stopCh      chan struct{}
	done        chan struct{}
	rawPose     map[landmark.Side]extract.HandAngles
	lastPose    map[landmark.Side]extract.HandAngles
	positions   map[landmark.Side]landmark.Point3D
	emptyFrames int
}

// New creates an App with the geometric pose solver and an in-memory
// adapter over the configured model.
func New(config Config) *App {
	tr := config.Tracer
	if tr == nil {
		tr = trace.Nop()
	}

	var calStore calib.Store = calib.NewMemoryStore()
	if config.Store != nil {
		calStore = config.Store.Calibrations()
	}
	cal := calib.NewManager(calStore, tr)

	model := config.Model
	if model == nil {
		model = &retarget.ModelSpec{Name: "none"}
	}

	a := &App{
		config:     config,
		tr:         tr,
		cal:        cal,
		mapper:     retarget.NewMapper(model, tr),
		target:     adapter.NewMemory(model),
		adapterMgr: adapter.NewManager(config.AdapterDir),
		rawPose:    make(map[landmark.Side]extract.HandAngles),
		lastPose:   make(map[landmark.Side]extract.HandAngles),
		positions:  make(map[landmark.Side]landmark.Point3D),
	}
	a.pose = solver.NewGeometric(
		extract.New(config.Extract, tr),
		filter.New(config.Filter),
	)
	return a
}

// SetEnabled enables or disables frame processing.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled reports whether frame processing is active.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetSource sets the landmark source the pipeline pulls from.
func (a *App) SetSource(src landmark.Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = src
}

// SetSolver swaps the pose strategy, e.g. for the chain IK path.
func (a *App) SetSolver(s solver.HandPoseSolver) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pose = s
}

// SetAdapter redirects joint commands, e.g. to an external process.
func (a *App) SetAdapter(t adapter.Adapter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.target = t
}

// LoadModel replaces the active model with one registered in the store
// and rebuilds the mapper and the in-memory adapter around it.
func (a *App) LoadModel(name string) error {
	if a.config.Store == nil {
		return fmt.Errorf("no store configured")
	}
	m, err := a.config.Store.Models().GetByName(name)
	if err != nil {
		return err
	}
	spec, err := retarget.ParseModelSpec([]byte(m.Spec))
	if err != nil {
		return fmt.Errorf("model %q: %w", name, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.mapper = retarget.NewMapper(spec, a.tr)
	a.target = adapter.NewMemory(spec)
	return nil
}

// LoadCalibration restores persisted calibration for both sides.
func (a *App) LoadCalibration() {
	a.cal.Load()
}

// DiscoverAdapters scans the adapter directory for external adapters.
func (a *App) DiscoverAdapters() error {
	return a.adapterMgr.Discover()
}

// UseExternalAdapter switches joint output to a discovered adapter.
func (a *App) UseExternalAdapter(name string) error {
	ext, err := a.adapterMgr.Get(name)
	if err != nil {
		return err
	}
	proc, err := adapter.NewProcess(ext, AdapterTimeoutMs)
	if err != nil {
		return err
	}
	a.SetAdapter(proc)
	return nil
}

// Start begins pulling frames from the source.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}
	if a.source == nil {
		return fmt.Errorf("no landmark source configured")
	}

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.run(a.source, a.stopCh, a.done)

	log.Println("Retargeting pipeline started")
	return nil
}

// Stop halts the pipeline and closes the source.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done, src := a.stopCh, a.done, a.source
	a.stopCh = nil
	a.done = nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	if src != nil {
		if err := src.Close(); err != nil {
			log.Printf("Error closing landmark source: %v", err)
		}
	}
	<-done

	log.Println("Retargeting pipeline stopped")
}

// Calibrate snapshots the retained pose for a side as its zero offset.
// The snapshot is the filtered pose before offset removal, so
// recalibrating while already calibrated captures the true rest reading
// rather than the near-zero calibrated output.
func (a *App) Calibrate(side landmark.Side) bool {
	a.mu.RLock()
	pose := a.rawPose[side]
	a.mu.RUnlock()
	return a.cal.Calibrate(side, pose)
}

// Calibration returns the calibration manager.
func (a *App) Calibration() *calib.Manager {
	return a.cal
}

// Mapper returns the active semantic mapper.
func (a *App) Mapper() *retarget.Mapper {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mapper
}

// Adapter returns the active joint-command target.
func (a *App) Adapter() adapter.Adapter {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.target
}

// AdapterManager returns the external adapter manager.
func (a *App) AdapterManager() *adapter.Manager {
	return a.adapterMgr
}

// LastPose returns the retained joint angles for a side, or nil when no
// hand has been seen yet.
func (a *App) LastPose(side landmark.Side) extract.HandAngles {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastPose[side]
}

// Position reports the last wrist position for a side. The second
// return is false while tracking is lost; angles are retained but
// positions revert to unknown.
func (a *App) Position(side landmark.Side) (landmark.Point3D, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.positions[side]
	return p, ok
}
