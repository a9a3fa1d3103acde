package classifier

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func waitDone(t *testing.T, m *Manager) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("load did not complete in time")
	}
}

func TestManagerReportsLoadingUntilDone(t *testing.T) {
	release := make(chan struct{})
	m := NewManager(func() (Engine, string, error) {
		<-release
		return &stubEngine{}, StrategyFullGraph, nil
	}, []string{"healthy"}, zap.NewNop())
	m.Start()

	state, _ := m.Status()
	require.Equal(t, StateLoading, state)
	_, err := m.Classifier()
	require.ErrorIs(t, err, ErrModelLoading)

	close(release)
	waitDone(t, m)

	state, strategyName := m.Status()
	require.Equal(t, StateReady, state)
	require.Equal(t, StrategyFullGraph, strategyName)

	c, err := m.Classifier()
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestManagerSurfacesFatalLoadError(t *testing.T) {
	fatal := &FatalLoadError{Path: "my_model", Failures: []StrategyFailure{
		{Strategy: StrategyFullGraph, Err: errors.New("boom")},
	}}
	m := NewManager(func() (Engine, string, error) {
		return nil, "", fatal
	}, nil, zap.NewNop())
	m.Start()
	waitDone(t, m)

	state, _ := m.Status()
	require.Equal(t, StateFailed, state)

	_, err := m.Classifier()
	var got *FatalLoadError
	require.ErrorAs(t, err, &got)
}

func TestManagerStartIsIdempotent(t *testing.T) {
	calls := 0
	m := NewManager(func() (Engine, string, error) {
		calls++
		return &stubEngine{}, StrategyPackedFile, nil
	}, nil, zap.NewNop())
	m.Start()
	m.Start()
	waitDone(t, m)
	require.Equal(t, 1, calls)
}

func TestManagerCloseReleasesEngine(t *testing.T) {
	engine := &stubEngine{}
	m := NewManager(func() (Engine, string, error) {
		return engine, StrategyPackedFile, nil
	}, nil, zap.NewNop())
	m.Start()
	waitDone(t, m)

	require.NoError(t, m.Close())
	require.True(t, engine.closed)
	require.NoError(t, m.Close())
}
