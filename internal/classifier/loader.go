package classifier

import (
	"errors"
	"path/filepath"

	"go.uber.org/zap"
)

// Load strategy identifiers, reported back to the UI on completion.
const (
	StrategyFullGraph  = "full_graph"
	StrategyGraphLayer = "graph_layer"
	StrategyPackedFile = "packed_file"
)

type strategy struct {
	name    string
	applies func(ArtifactShape) bool
	load    func(path string) (Engine, error)
}

// Loader resolves the configured artifact path into a ready Engine by
// trying an ordered list of strategies. The first success wins; the
// reduced-capability fallback is attempted only after the known
// incompatibility class, and an unknown failure aborts the chain.
type Loader struct {
	path       string
	logger     *zap.Logger
	strategies []strategy
}

// NewLoader builds the production strategy chain for the given artifact
// path. classCount sizes the output tensor when the artifact ships
// without a companion metadata file.
func NewLoader(path string, classCount int, logger *zap.Logger) *Loader {
	return &Loader{
		path:   path,
		logger: logger.Named("loader"),
		strategies: []strategy{
			{
				name:    StrategyFullGraph,
				applies: func(s ArtifactShape) bool { return s == ShapeDirectory },
				load: func(dir string) (Engine, error) {
					meta, err := loadMetadata(dir, classCount)
					if err != nil {
						return nil, err
					}
					return newFullEngine(filepath.Join(dir, graphDescriptorName), meta)
				},
			},
			{
				name:    StrategyGraphLayer,
				applies: func(s ArtifactShape) bool { return s == ShapeDirectory },
				load: func(dir string) (Engine, error) {
					return newLayerEngine(filepath.Join(dir, graphDescriptorName))
				},
			},
			{
				name:    StrategyPackedFile,
				applies: func(s ArtifactShape) bool { return s == ShapePacked },
				load: func(file string) (Engine, error) {
					return newFullEngine(file, defaultMetadata(classCount))
				},
			},
		},
	}
}

// Load walks the strategy chain and returns the adopted engine together
// with its strategy identifier, or a FatalLoadError once exhausted.
func (l *Loader) Load() (Engine, string, error) {
	shape, err := DetectShape(l.path)
	if err != nil {
		l.logger.Error("artifact shape detection failed", zap.Error(err))
		return nil, "", &FatalLoadError{
			Path:     l.path,
			Failures: []StrategyFailure{{Strategy: "detect_shape", Err: err}},
		}
	}
	l.logger.Info("artifact located",
		zap.String("path", l.path),
		zap.String("shape", shape.String()))

	var failures []StrategyFailure
	for _, s := range l.strategies {
		if !s.applies(shape) {
			continue
		}

		engine, err := s.load(l.path)
		if err == nil {
			l.logger.Info("load strategy adopted", zap.String("strategy", s.name))
			return engine, s.name, nil
		}

		failures = append(failures, StrategyFailure{Strategy: s.name, Err: err})
		if isIncompatibility(err) {
			// Known version drift: degrade silently and try the next strategy.
			l.logger.Warn("strategy hit runtime incompatibility, falling back",
				zap.String("strategy", s.name), zap.Error(err))
			continue
		}

		// Never guess past an unknown failure.
		l.logger.Error("strategy failed", zap.String("strategy", s.name), zap.Error(err))
		break
	}

	if len(failures) == 0 {
		failures = append(failures, StrategyFailure{
			Strategy: "detect_shape",
			Err:      errors.New("no strategy applies to this artifact shape"),
		})
	}
	return nil, "", &FatalLoadError{Path: l.path, Failures: failures}
}
