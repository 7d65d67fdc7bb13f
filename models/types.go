package models

import "time"

// Prediction is one label returned by a classifier.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// DisplayDimensions is the letterboxed size an image is shown at.
type DisplayDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ProcessingTimings breaks a single ONNX classification down by stage.
type ProcessingTimings struct {
	RequestID   string
	Resize      time.Duration
	Preprocess  time.Duration
	Inference   time.Duration
	Postprocess time.Duration
	Total       time.Duration
}

// Snapshot is the read-only view of a benchmark session handed to the
// display layer.
type Snapshot struct {
	SessionID          string             `json:"session_id"`
	State              string             `json:"state"`
	ModelReady         bool               `json:"model_ready"`
	ModelLoadLatencyMs float64            `json:"model_load_latency_ms"`
	CurrentImage       *string            `json:"current_image"`
	DisplaySize        *DisplayDimensions `json:"display_size"`
	Predictions        []Prediction       `json:"predictions"`
	InferenceMeasured  bool               `json:"inference_measured"`
	LastInferenceMs    float64            `json:"last_inference_ms"`
	AverageInferenceMs float64            `json:"average_inference_ms"`
	Attempts           int                `json:"attempts"`
	Error              string             `json:"error,omitempty"`
	Message            string             `json:"message"`
}
