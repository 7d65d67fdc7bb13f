package inference

import (
	"fmt"
	"image"
	"runtime"
	"sync"
)

// Preprocessor converts an image that already has the model's input size
// into a normalized planar (CHW) float32 tensor.
type Preprocessor struct {
	width, height int
	mean, std     [3]float32
	numWorkers    int
}

func NewPreprocessor(width, height int, mean, std [3]float32) *Preprocessor {
	return &Preprocessor{
		width:      width,
		height:     height,
		mean:       mean,
		std:        std,
		numWorkers: runtime.GOMAXPROCS(0),
	}
}

// Process writes img into dst, which must hold 3*width*height values.
func (p *Preprocessor) Process(img image.Image, dst []float32) error {
	bounds := img.Bounds()
	if bounds.Dx() != p.width || bounds.Dy() != p.height {
		return fmt.Errorf("image is %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), p.width, p.height)
	}
	if len(dst) != Channels*p.width*p.height {
		return fmt.Errorf("tensor holds %d values, want %d", len(dst), Channels*p.width*p.height)
	}

	if nrgba, ok := img.(*image.NRGBA); ok {
		p.processParallel(func(y int) { p.processNRGBARow(nrgba, dst, y) })
	} else {
		p.processParallel(func(y int) { p.processGenericRow(img, dst, y) })
	}
	return nil
}

func (p *Preprocessor) processParallel(processRow func(y int)) {
	workers := p.numWorkers
	if workers > p.height {
		workers = p.height
	}
	rowsPerWorker := p.height / workers

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		startRow := w * rowsPerWorker
		endRow := (w + 1) * rowsPerWorker
		if w == workers-1 {
			endRow = p.height
		}

		go func(start, end int) {
			defer wg.Done()
			for y := start; y < end; y++ {
				processRow(y)
			}
		}(startRow, endRow)
	}

	wg.Wait()
}

func (p *Preprocessor) processNRGBARow(img *image.NRGBA, dst []float32, y int) {
	channelSize := p.width * p.height
	start := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
	row := img.Pix[start : start+p.width*4]
	offset := y * p.width
	for x := 0; x < p.width; x++ {
		px := row[x*4 : x*4+3]
		i := offset + x
		dst[i] = p.normalize(0, px[0])
		dst[channelSize+i] = p.normalize(1, px[1])
		dst[channelSize*2+i] = p.normalize(2, px[2])
	}
}

func (p *Preprocessor) processGenericRow(img image.Image, dst []float32, y int) {
	channelSize := p.width * p.height
	origin := img.Bounds().Min
	offset := y * p.width
	for x := 0; x < p.width; x++ {
		i := offset + x
		r, g, b, _ := img.At(origin.X+x, origin.Y+y).RGBA()
		dst[i] = p.normalize(0, uint8(r>>8))
		dst[channelSize+i] = p.normalize(1, uint8(g>>8))
		dst[channelSize*2+i] = p.normalize(2, uint8(b>>8))
	}
}

func (p *Preprocessor) normalize(channel int, v uint8) float32 {
	return (float32(v)/255.0 - p.mean[channel]) / p.std[channel]
}
