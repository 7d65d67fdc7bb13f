package inference

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metadata describes an exported classifier. It is read from a JSON file
// stored next to the .onnx file.
type Metadata struct {
	InputName   string      `json:"input_name"`
	OutputName  string      `json:"output_name"`
	InputShape  []int64     `json:"input_shape"`
	OutputShape []int64     `json:"output_shape"`
	Classes     []string    `json:"classes"`
	ImageSize   int         `json:"image_size"`
	Mean        *[3]float32 `json:"mean,omitempty"`
	Std         *[3]float32 `json:"std,omitempty"`
	// Logits is set when the model outputs raw scores that still need a softmax.
	Logits bool `json:"logits"`
}

// ReadMetadata loads and validates a metadata file.
func ReadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	meta.applyDefaults()
	if err := meta.validate(); err != nil {
		return Metadata{}, fmt.Errorf("invalid metadata %s: %w", path, err)
	}
	return meta, nil
}

func (m *Metadata) applyDefaults() {
	if m.InputName == "" {
		m.InputName = DefaultInputName
	}
	if m.OutputName == "" {
		m.OutputName = DefaultOutputName
	}
	if m.ImageSize == 0 {
		m.ImageSize = DefaultImageSize
	}
	if len(m.InputShape) == 0 {
		m.InputShape = []int64{1, Channels, int64(m.ImageSize), int64(m.ImageSize)}
	}
	if len(m.OutputShape) == 0 && len(m.Classes) > 0 {
		m.OutputShape = []int64{1, int64(len(m.Classes))}
	}
	if m.Mean == nil {
		mean := ImageNetMean
		m.Mean = &mean
	}
	if m.Std == nil {
		std := ImageNetStd
		m.Std = &std
	}
}

func (m *Metadata) validate() error {
	if len(m.InputShape) != 4 {
		return fmt.Errorf("input shape %v is not NCHW", m.InputShape)
	}
	if m.InputShape[0] != 1 || m.InputShape[1] != Channels {
		return fmt.Errorf("input shape %v must be [1 3 H W]", m.InputShape)
	}
	if m.InputShape[2] <= 0 || m.InputShape[3] <= 0 {
		return fmt.Errorf("input shape %v has a non-positive spatial size", m.InputShape)
	}
	if len(m.OutputShape) == 0 {
		return fmt.Errorf("output shape is missing and no classes are listed")
	}
	for _, dim := range m.OutputShape {
		if dim <= 0 {
			return fmt.Errorf("output shape %v has a non-positive dimension", m.OutputShape)
		}
	}
	for i, s := range m.Std {
		if s == 0 {
			return fmt.Errorf("std[%d] is zero", i)
		}
	}
	return nil
}

// InputWidth is the width of the model input tensor.
func (m Metadata) InputWidth() int { return int(m.InputShape[3]) }

// InputHeight is the height of the model input tensor.
func (m Metadata) InputHeight() int { return int(m.InputShape[2]) }
