package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactShape is the on-disk layout of the classifier artifact.
type ArtifactShape int

const (
	// ShapeUnknown means the path matches neither supported layout.
	ShapeUnknown ArtifactShape = iota
	// ShapeDirectory is a saved-graph directory: a graph descriptor file
	// plus a subdirectory of weight shards and a companion metadata file.
	ShapeDirectory
	// ShapePacked is a single self-contained packed-weights file.
	ShapePacked
)

const (
	graphDescriptorName = "model.onnx"
	metadataFileName    = "metadata.json"
	packedExtension     = ".onnx"

	supportedSchemaVersion = 1
)

// String names the shape for logs.
func (s ArtifactShape) String() string {
	switch s {
	case ShapeDirectory:
		return "directory"
	case ShapePacked:
		return "packed"
	default:
		return "unknown"
	}
}

// DetectShape inspects the configured artifact path and decides which
// layout it carries.
func DetectShape(path string) (ArtifactShape, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ShapeUnknown, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
	}

	if info.IsDir() {
		descriptor := filepath.Join(path, graphDescriptorName)
		if _, err := os.Stat(descriptor); err != nil {
			return ShapeUnknown, fmt.Errorf("%w: directory %s has no graph descriptor", ErrArtifactNotFound, path)
		}
		return ShapeDirectory, nil
	}

	if strings.EqualFold(filepath.Ext(path), packedExtension) {
		return ShapePacked, nil
	}
	return ShapeUnknown, fmt.Errorf("%w: %s matches no supported artifact layout", ErrArtifactNotFound, path)
}

// Metadata is the companion descriptor written next to a saved-graph
// artifact. It pins the tensor names and shapes the full-fidelity load
// strategy binds up front.
type Metadata struct {
	SchemaVersion int     `json:"schema_version"`
	InputName     string  `json:"input_name"`
	OutputName    string  `json:"output_name"`
	InputShape    []int64 `json:"input_shape"`
	OutputShape   []int64 `json:"output_shape"`
}

// defaultMetadata describes the fixed input contract of the packed
// artifact shape, which ships without a companion file.
func defaultMetadata(classCount int) *Metadata {
	return &Metadata{
		SchemaVersion: supportedSchemaVersion,
		InputName:     "input",
		OutputName:    "output",
		InputShape:    []int64{1, inputSize, inputSize, inputChannels},
		OutputShape:   []int64{1, int64(classCount)},
	}
}

// loadMetadata reads the companion file of a directory artifact. A missing,
// unreadable, or newer-schema companion is the known incompatibility class:
// it is what an artifact exported by a different toolchain version looks
// like, so it triggers the fallback rather than a fatal error.
func loadMetadata(dir string, classCount int) (*Metadata, error) {
	raw, err := os.ReadFile(filepath.Join(dir, metadataFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: no readable %s", ErrArtifactIncompatible, metadataFileName)
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: malformed %s: %v", ErrArtifactIncompatible, metadataFileName, err)
	}
	if meta.SchemaVersion > supportedSchemaVersion {
		return nil, fmt.Errorf("%w: metadata schema %d newer than supported %d",
			ErrArtifactIncompatible, meta.SchemaVersion, supportedSchemaVersion)
	}

	defaults := defaultMetadata(classCount)
	if meta.InputName == "" {
		meta.InputName = defaults.InputName
	}
	if meta.OutputName == "" {
		meta.OutputName = defaults.OutputName
	}
	if len(meta.InputShape) == 0 {
		meta.InputShape = defaults.InputShape
	}
	if len(meta.OutputShape) == 0 {
		meta.OutputShape = defaults.OutputShape
	}
	return &meta, nil
}
