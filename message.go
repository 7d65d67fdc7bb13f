package main

import (
	"fmt"
	"strings"

	"github.com/Tutortoise/inference-benchmark/benchmark"
	"github.com/Tutortoise/inference-benchmark/models"
)

const (
	MsgUninitialized = "Session created. The model has not been requested yet."

	MsgModelLoading = "Loading model..."

	MsgModelFailed = "The model could not be loaded. Delete this session and create a new one once the model files are in place."

	MsgReady = "Model ready. Request a random image to start measuring inference time."

	MsgImageLoading = "Loading image..."

	MsgClassifying = "Running inference..."
)

// statusMessage renders the snapshot as the text a viewer reads.
func statusMessage(snap models.Snapshot) string {
	var lines []string

	switch {
	case !snap.ModelReady && snap.Error != "" && snap.State == benchmark.ModelLoading.String():
		return MsgModelFailed
	case snap.State == benchmark.Uninitialized.String():
		return MsgUninitialized
	case !snap.ModelReady:
		lines = append(lines, MsgModelLoading)
	default:
		lines = append(lines, fmt.Sprintf("Model load time: %.2fms", snap.ModelLoadLatencyMs))
	}

	switch snap.State {
	case benchmark.ImageLoading.String():
		lines = append(lines, MsgImageLoading)
	case benchmark.Classifying.String():
		lines = append(lines, MsgClassifying)
	}

	if snap.CurrentImage == nil {
		switch {
		case snap.Error != "":
			lines = append(lines, "Error: "+snap.Error)
		case snap.ModelReady && snap.State == benchmark.Idle.String():
			lines = append(lines, MsgReady)
		}
		return strings.Join(lines, "\n")
	}

	for _, p := range snap.Predictions {
		lines = append(lines, fmt.Sprintf("%s: %.4f", p.Label, p.Confidence))
	}
	if snap.InferenceMeasured {
		lines = append(lines, fmt.Sprintf("Image inference time: %.2fms", snap.LastInferenceMs))
	}
	lines = append(lines, fmt.Sprintf("Average inference time: %.2fms", snap.AverageInferenceMs))
	if snap.Error != "" {
		lines = append(lines, "Error: "+snap.Error)
	}
	return strings.Join(lines, "\n")
}
