// Package usecase carries the application flows between the HTTP boundary
// and the classifier/store layers.
package usecase

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/cropmanager/internal/classifier"
	"github.com/example/cropmanager/internal/knowledge"
	"github.com/example/cropmanager/internal/logging"
	"github.com/example/cropmanager/internal/store"
)

// ModelSource hands out the classifier once the background load finished.
type ModelSource interface {
	Classifier() (*classifier.Classifier, error)
	Status() (classifier.State, string)
}

// ScanStore defines the persistence operations needed by the scan flow.
type ScanStore interface {
	LogScan(username, file, result, status string) error
	History(username string) ([]store.ScanEntry, error)
	Stats(username string) (map[string]int, error)
}

// ScanResult is a completed scan: the raw diagnosis plus the rendered
// advice report.
type ScanResult struct {
	ScanID     string                `json:"scan_id"`
	Diagnosis  *classifier.Diagnosis `json:"diagnosis"`
	Report     *knowledge.Report     `json:"report"`
	KnownClass bool                  `json:"known_class"`
}

// ScanService orchestrates classify, report lookup, and history logging.
type ScanService struct {
	models ModelSource
	store  ScanStore
	logger *zap.Logger
}

// NewScanService constructs a new scan service.
func NewScanService(models ModelSource, scanStore ScanStore, logger *zap.Logger) *ScanService {
	return &ScanService{
		models: models,
		store:  scanStore,
		logger: logger.Named("scan_usecase"),
	}
}

// Scan classifies one uploaded image for the user and records the outcome
// in the scan log. An unknown class degrades to the generic report rather
// than failing the scan.
func (s *ScanService) Scan(username, filename string, imageData []byte) (*ScanResult, error) {
	scanID := uuid.NewString()
	opLogger := logging.WithOperation(s.logger, "usecase.scan", scanID)

	c, err := s.models.Classifier()
	if err != nil {
		wrapped := logging.NewOperationError("usecase.model_handle", scanID, err)
		opLogger.Warn("classifier unavailable", zap.Error(wrapped))
		return nil, wrapped
	}

	diag, err := c.Classify(imageData)
	if err != nil {
		wrapped := logging.NewOperationError("usecase.classify", scanID, err)
		opLogger.Error("classification failed", zap.Error(wrapped))
		return nil, wrapped
	}

	known := true
	report, err := knowledge.BuildReport(diag.Label, diag.Confidence)
	if errors.Is(err, knowledge.ErrUnknownClass) {
		known = false
		report = knowledge.GenericReport(diag.Label, diag.Confidence)
		opLogger.Info("no advice for class, using generic report", zap.String("label", diag.Label))
	} else if err != nil {
		wrapped := logging.NewOperationError("usecase.report", scanID, err)
		opLogger.Error("report generation failed", zap.Error(wrapped))
		return nil, wrapped
	}

	if err := s.store.LogScan(username, filename, report.Label, report.Status); err != nil {
		wrapped := logging.NewOperationError("usecase.log_scan", scanID, err)
		opLogger.Error("failed to persist scan log", zap.Error(wrapped))
		return nil, wrapped
	}

	opLogger.Info("scan complete",
		zap.String("label", diag.Label),
		zap.String("status", report.Status),
		zap.Float32("confidence", diag.Confidence))

	return &ScanResult{
		ScanID:     scanID,
		Diagnosis:  diag,
		Report:     report,
		KnownClass: known,
	}, nil
}

// History returns the user's scan log.
func (s *ScanService) History(username string) ([]store.ScanEntry, error) {
	return s.store.History(username)
}
