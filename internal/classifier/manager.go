package classifier

import (
	"sync"

	"go.uber.org/zap"
)

// State is the lifecycle of the background model load.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// LoadFunc resolves an engine and the identifier of the adopted strategy.
type LoadFunc func() (Engine, string, error)

// Manager owns the one-time background load of the classifier and hands
// the resulting handle to the rest of the application. The handle is
// written exactly once by the load goroutine; afterwards it is read-only.
type Manager struct {
	mu         sync.RWMutex
	state      State
	strategy   string
	classifier *Classifier
	loadErr    error

	load    LoadFunc
	classes []string
	logger  *zap.Logger
	done    chan struct{}
	once    sync.Once
}

// NewManager prepares a manager in the loading state.
func NewManager(load LoadFunc, classes []string, logger *zap.Logger) *Manager {
	return &Manager{
		state:   StateLoading,
		load:    load,
		classes: classes,
		logger:  logger.Named("model_manager"),
		done:    make(chan struct{}),
	}
}

// Start kicks off the load on a background goroutine so the interface can
// paint immediately. Calling it more than once is a no-op.
func (m *Manager) Start() {
	m.once.Do(func() {
		go m.run()
	})
}

func (m *Manager) run() {
	engine, strategyName, err := m.load()

	m.mu.Lock()
	if err != nil {
		m.state = StateFailed
		m.loadErr = err
	} else {
		m.state = StateReady
		m.strategy = strategyName
		m.classifier = NewClassifier(engine, m.classes)
	}
	m.mu.Unlock()
	close(m.done)

	if err != nil {
		m.logger.Error("classifier load failed", zap.Error(err))
		return
	}
	m.logger.Info("classifier ready",
		zap.String("strategy", strategyName),
		zap.Int("classes", len(m.classes)))
}

// Done is closed once the load finished, successfully or not.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Status reports the current state and, when ready, the adopted strategy.
func (m *Manager) Status() (State, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.strategy
}

// Classifier returns the loaded handle, ErrModelLoading while the load is
// still in flight, or the fatal load error once the chain is exhausted.
func (m *Manager) Classifier() (*Classifier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch m.state {
	case StateReady:
		return m.classifier, nil
	case StateFailed:
		return nil, m.loadErr
	default:
		return nil, ErrModelLoading
	}
}

// Close releases the engine if one was loaded.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.classifier == nil {
		return nil
	}
	err := m.classifier.Close()
	m.classifier = nil
	return err
}
