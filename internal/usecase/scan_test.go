package usecase

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	"go.uber.org/zap"

	"github.com/example/cropmanager/internal/classifier"
	"github.com/example/cropmanager/internal/knowledge"
	"github.com/example/cropmanager/internal/logging"
	"github.com/example/cropmanager/internal/store"
)

type stubEngine struct {
	probs []float32
}

func (s *stubEngine) Infer(input []float32) ([]float32, error) { return s.probs, nil }
func (s *stubEngine) Close() error                             { return nil }

type stubModels struct {
	classifier *classifier.Classifier
	err        error
	state      classifier.State
	strategy   string
}

func (s *stubModels) Classifier() (*classifier.Classifier, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.classifier, nil
}

func (s *stubModels) Status() (classifier.State, string) { return s.state, s.strategy }

type stubStore struct {
	logs    []store.ScanEntry
	logErr  error
	history []store.ScanEntry
	stats   map[string]int
}

func (s *stubStore) LogScan(username, file, result, status string) error {
	if s.logErr != nil {
		return s.logErr
	}
	s.logs = append(s.logs, store.ScanEntry{File: file, Result: result, Status: status})
	return nil
}

func (s *stubStore) History(username string) ([]store.ScanEntry, error) { return s.history, nil }
func (s *stubStore) Stats(username string) (map[string]int, error)      { return s.stats, nil }

func readyModels(probs []float32, classes []string) *stubModels {
	return &stubModels{
		classifier: classifier.NewClassifier(&stubEngine{probs: probs}, classes),
		state:      classifier.StateReady,
		strategy:   classifier.StrategyFullGraph,
	}
}

func testImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestScanLogsKnownDiagnosis(t *testing.T) {
	models := readyModels([]float32{0.1, 0.9}, []string{"healthy", "early_blight"})
	st := &stubStore{}
	svc := NewScanService(models, st, zap.NewNop())

	result, err := svc.Scan("admin", "leaf.jpg", testImage(t))
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if result.ScanID == "" {
		t.Fatal("expected a scan id")
	}
	if !result.KnownClass {
		t.Fatal("expected a known class")
	}
	if result.Report.Status != knowledge.StatusInfected {
		t.Fatalf("unexpected status: %s", result.Report.Status)
	}
	if len(st.logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(st.logs))
	}
	if st.logs[0].Result != "early blight" {
		t.Fatalf("unexpected logged result: %s", st.logs[0].Result)
	}
}

func TestScanUnknownClassUsesGenericReport(t *testing.T) {
	models := readyModels([]float32{0.2, 0.8}, []string{"healthy", "corn_rust"})
	st := &stubStore{}
	svc := NewScanService(models, st, zap.NewNop())

	result, err := svc.Scan("admin", "leaf.jpg", testImage(t))
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if result.KnownClass {
		t.Fatal("expected unknown class")
	}
	if result.Report.Cause != "Unknown pathogen or environmental stress." {
		t.Fatalf("expected generic advice, got %q", result.Report.Cause)
	}
	if len(st.logs) != 1 {
		t.Fatalf("expected scan still logged, got %d entries", len(st.logs))
	}
}

func TestScanWhileModelLoading(t *testing.T) {
	models := &stubModels{err: classifier.ErrModelLoading, state: classifier.StateLoading}
	svc := NewScanService(models, &stubStore{}, zap.NewNop())

	_, err := svc.Scan("admin", "leaf.jpg", testImage(t))
	if !errors.Is(err, classifier.ErrModelLoading) {
		t.Fatalf("expected ErrModelLoading, got %v", err)
	}
}

func TestScanDecodeErrorDoesNotLog(t *testing.T) {
	models := readyModels([]float32{1}, []string{"healthy"})
	st := &stubStore{}
	svc := NewScanService(models, st, zap.NewNop())

	_, err := svc.Scan("admin", "note.txt", []byte("not an image"))
	if !errors.Is(err, classifier.ErrImageDecode) {
		t.Fatalf("expected ErrImageDecode, got %v", err)
	}
	if len(st.logs) != 0 {
		t.Fatalf("expected no log entries, got %d", len(st.logs))
	}
}

func TestScanStoreFailureReturnsOperationError(t *testing.T) {
	models := readyModels([]float32{1}, []string{"healthy"})
	st := &stubStore{logErr: errors.New("disk full")}
	svc := NewScanService(models, st, zap.NewNop())

	_, err := svc.Scan("admin", "leaf.jpg", testImage(t))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Operation != "usecase.log_scan" {
		t.Fatalf("unexpected operation: %s", opErr.Operation)
	}
}

func TestSummaryAggregatesScans(t *testing.T) {
	st := &stubStore{
		stats: map[string]int{"Plant": 2, "Seed": 0, "Tool": 1, "Other": 0},
		history: []store.ScanEntry{
			{Status: knowledge.StatusHealthy},
			{Status: knowledge.StatusInfected},
			{Status: knowledge.StatusHealthy},
			{Status: knowledge.StatusInfected},
		},
	}
	svc := NewScanService(&stubModels{}, st, zap.NewNop())

	summary, err := svc.Summary("admin")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if summary.TotalScans != 4 {
		t.Fatalf("expected 4 scans, got %d", summary.TotalScans)
	}
	if summary.HealthyScans != 2 {
		t.Fatalf("expected 2 healthy scans, got %d", summary.HealthyScans)
	}
	if summary.HealthyRate != 0.5 {
		t.Fatalf("expected rate 0.5, got %f", summary.HealthyRate)
	}
	if summary.Inventory["Plant"] != 2 {
		t.Fatalf("unexpected inventory stats: %v", summary.Inventory)
	}
}
