package analyzer

import (
	"fmt"
	"image"
	"sync"

	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
	"gonum.org/v1/gonum/stat"
)

// minRowsPerBand keeps band jobs large enough that queueing cost stays small
const minRowsPerBand = 16

// textureScorer implements TextureScorer using LBP codes and per-patch variance
type textureScorer struct {
	pool      *WorkerPool
	border    BorderMode
	patchPool sync.Pool
}

// NewTextureScorer creates a scorer that spreads LBP rows across pool.
// A nil pool computes everything on the calling goroutine.
func NewTextureScorer(pool *WorkerPool, border BorderMode) TextureScorer {
	return &textureScorer{
		pool:   pool,
		border: border,
		patchPool: sync.Pool{
			New: func() interface{} {
				return make([]float64, 0, DefaultPatchSize*DefaultPatchSize)
			},
		},
	}
}

// Score returns the variance of LBP codes over every complete patchSize x patchSize tile.
// Partial tiles at the right and bottom edges are dropped.
func (ts *textureScorer) Score(img image.Image, patchSize int) (*RichnessMap, error) {
	if patchSize < 1 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("patch size must be a positive integer, got %d", patchSize), nil)
	}

	lbp := newLBPImage(toGray(img), ts.border)
	codes := ts.computeCodes(lbp)

	rows, cols := lbp.height/patchSize, lbp.width/patchSize
	result := &RichnessMap{
		Rows:      rows,
		Cols:      cols,
		PatchSize: patchSize,
		Values:    make([]float64, rows*cols),
	}

	patch := ts.patchPool.Get().([]float64)
	defer func() { ts.patchPool.Put(patch[:0]) }()

	for pr := 0; pr < rows; pr++ {
		for pc := 0; pc < cols; pc++ {
			patch = patch[:0]
			for y := pr * patchSize; y < (pr+1)*patchSize; y++ {
				row := codes[y*lbp.width+pc*patchSize : y*lbp.width+(pc+1)*patchSize]
				for _, v := range row {
					patch = append(patch, float64(v))
				}
			}
			_, variance := stat.PopMeanVariance(patch, nil)
			result.Values[pr*cols+pc] = variance
		}
	}

	return result, nil
}

// computeCodes evaluates the LBP code of every pixel, in row bands on the worker pool when available
func (ts *textureScorer) computeCodes(lbp *lbpImage) []uint8 {
	codes := make([]uint8, lbp.width*lbp.height)
	if lbp.width == 0 || lbp.height == 0 {
		return codes
	}

	if ts.pool == nil || lbp.height < 2*minRowsPerBand {
		lbp.computeRows(codes, 0, lbp.height)
		return codes
	}

	bands := ts.pool.GetStats().Workers
	rowsPerBand := (lbp.height + bands - 1) / bands // ceil division
	if rowsPerBand < minRowsPerBand {
		rowsPerBand = minRowsPerBand
	}

	var wg sync.WaitGroup
	for startY := 0; startY < lbp.height; startY += rowsPerBand {
		endY := startY + rowsPerBand
		if endY > lbp.height {
			endY = lbp.height
		}
		wg.Add(1)
		start, end := startY, endY
		if !ts.pool.Submit(func() {
			defer wg.Done()
			lbp.computeRows(codes, start, end)
		}) {
			// pool closed: fall back to the caller's goroutine
			wg.Done()
			lbp.computeRows(codes, start, end)
		}
	}
	wg.Wait()

	return codes
}
