package inference

import (
	"fmt"
	"math"
	"sort"

	"github.com/Tutortoise/inference-benchmark/models"
)

// Softmax turns raw logits into probabilities.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}

	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxVal))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// TopK returns the k highest scoring classes, best first. Scores for
// indices without a class name are labelled by index.
func TopK(scores []float32, classes []string, k int) []models.Prediction {
	if k <= 0 || k > len(scores) {
		k = len(scores)
	}

	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})

	predictions := make([]models.Prediction, 0, k)
	for _, idx := range indices[:k] {
		label := fmt.Sprintf("class_%d", idx)
		if idx < len(classes) {
			label = classes[idx]
		}
		predictions = append(predictions, models.Prediction{
			Label:      label,
			Confidence: clamp01(float64(scores[idx])),
		})
	}
	return predictions
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
