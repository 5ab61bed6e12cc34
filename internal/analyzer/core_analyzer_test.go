package analyzer

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
	"github.com/google/go-cmp/cmp"
)

// createTestImage creates a simple test image for testing purposes
func createTestImage(width, height int, fillColor color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fillColor)
		}
	}
	return img
}

// createGradientImage creates a gradient test image
func createGradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// Create a gradient from black to white
			intensity := uint8((x + y) * 255 / (width + height))
			img.Set(x, y, color.RGBA{intensity, intensity, intensity, 255})
		}
	}
	return img
}

func newTestAnalyzer(t *testing.T) ImageAnalyzer {
	t.Helper()
	analyzer, err := NewImageAnalyzer()
	if err != nil {
		t.Fatalf("Failed to create image analyzer: %v", err)
	}
	t.Cleanup(func() { analyzer.Close() })
	return analyzer
}

func pixels(t *testing.T, img image.Image) []uint8 {
	t.Helper()
	switch v := img.(type) {
	case *image.RGBA:
		return v.Pix
	case *image.Gray:
		return v.Pix
	}
	t.Fatalf("unexpected artifact type %T", img)
	return nil
}

func TestNewImageAnalyzer(t *testing.T) {
	analyzer, err := NewImageAnalyzer()
	if err != nil {
		t.Fatalf("Failed to create image analyzer: %v", err)
	}
	if analyzer == nil {
		t.Fatal("Expected non-nil analyzer")
	}
	if err := analyzer.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
}

func TestAnalyze_ArtifactsInLabelOrder(t *testing.T) {
	analyzer := newTestAnalyzer(t)
	img := createGradientImage(48, 40)

	out, err := analyzer.Analyze(context.Background(), img, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if len(out.Artifacts) != len(Labels) {
		t.Fatalf("got %d artifacts, want %d", len(out.Artifacts), len(Labels))
	}
	for i, a := range out.Artifacts {
		if a.Label != Labels[i] {
			t.Errorf("artifact %d label = %s, want %s", i, a.Label, Labels[i])
		}
		if a.Image.Bounds() != img.Bounds() {
			t.Errorf("%s bounds = %v, want %v", a.Label, a.Image.Bounds(), img.Bounds())
		}
	}

	if out.Width != 48 || out.Height != 40 {
		t.Errorf("dimensions = %dx%d, want 48x40", out.Width, out.Height)
	}
	if out.RichnessRows != 5 || out.RichnessCols != 6 {
		t.Errorf("richness map = %dx%d, want 5x6", out.RichnessRows, out.RichnessCols)
	}
	if out.RichFraction <= 0 || out.RichFraction > 1 {
		t.Errorf("rich fraction = %v, want (0, 1]", out.RichFraction)
	}
	if out.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}
	if out.ProcessingTime <= 0 {
		t.Error("Expected processing time to be positive")
	}
}

func TestAnalyze_BlackImage(t *testing.T) {
	analyzer := newTestAnalyzer(t)
	img := createTestImage(64, 64, color.RGBA{0, 0, 0, 255})

	out, err := analyzer.Analyze(context.Background(), img, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	richMask, _ := out.Get(LabelRichMask)
	for _, v := range pixels(t, richMask) {
		if v != 255 {
			t.Fatal("Expected every pixel of a flat image to be rich")
		}
	}
	poorMask, _ := out.Get(LabelPoorMask)
	for _, v := range pixels(t, poorMask) {
		if v != 0 {
			t.Fatal("Expected the poor mask to be empty")
		}
	}

	richTexture, _ := out.Get(LabelRichTexture)
	if diff := cmp.Diff(img.Pix, pixels(t, richTexture)); diff != "" {
		t.Errorf("rich texture differs from the original (-want +got):\n%s", diff)
	}

	for _, label := range []Label{LabelPoorTexture, LabelRichELA, LabelPoorELA} {
		artifact, ok := out.Get(label)
		if !ok {
			t.Fatalf("missing artifact %s", label)
		}
		if diff := cmp.Diff(img.Pix, pixels(t, artifact)); diff != "" {
			t.Errorf("%s is not all black (-want +got):\n%s", label, diff)
		}
	}

	if out.RichELA.MaxDiff != 0 || out.PoorELA.MaxDiff != 0 {
		t.Errorf("ELA max diffs = %d/%d, want 0/0", out.RichELA.MaxDiff, out.PoorELA.MaxDiff)
	}
}

func TestAnalyze_RegionsRecomposeOriginal(t *testing.T) {
	analyzer := newTestAnalyzer(t)
	img := createNoiseImage(40, 40)
	for y := 0; y < 40; y++ {
		for x := 20; x < 40; x++ {
			img.Set(x, y, color.RGBA{60, 70, 80, 255})
		}
	}

	out, err := analyzer.Analyze(context.Background(), img, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	rich, _ := out.Get(LabelRichTexture)
	poor, _ := out.Get(LabelPoorTexture)
	richPix, poorPix := pixels(t, rich), pixels(t, poor)
	for i := 0; i < len(img.Pix); i += 4 {
		for ch := 0; ch < 3; ch++ {
			if int(richPix[i+ch])+int(poorPix[i+ch]) != int(img.Pix[i+ch]) {
				t.Fatalf("byte %d does not recompose", i+ch)
			}
		}
	}

	richMask, _ := out.Get(LabelRichMask)
	poorMask, _ := out.Get(LabelPoorMask)
	rm, pm := pixels(t, richMask), pixels(t, poorMask)
	for i := range rm {
		if int(rm[i])+int(pm[i]) != 255 {
			t.Fatalf("mask pixel %d is not exclusive", i)
		}
	}
}

func TestAnalyze_SequentialMatchesConcurrent(t *testing.T) {
	analyzer := newTestAnalyzer(t)
	img := createNoiseImage(48, 48)

	concurrent, err := analyzer.Analyze(context.Background(), img, DefaultOptions())
	if err != nil {
		t.Fatalf("concurrent Analyze returned error: %v", err)
	}
	sequential, err := analyzer.Analyze(context.Background(), img, DefaultOptions().Sequential())
	if err != nil {
		t.Fatalf("sequential Analyze returned error: %v", err)
	}

	for _, label := range Labels {
		a, _ := concurrent.Get(label)
		b, _ := sequential.Get(label)
		if diff := cmp.Diff(pixels(t, a), pixels(t, b)); diff != "" {
			t.Errorf("%s differs between sequential and concurrent runs", label)
		}
	}
	if concurrent.Threshold != sequential.Threshold {
		t.Errorf("thresholds differ: %v vs %v", concurrent.Threshold, sequential.Threshold)
	}
}

func TestAnalyze_PatchLargerThanImage(t *testing.T) {
	analyzer := newTestAnalyzer(t)
	img := createGradientImage(6, 6)

	out, err := analyzer.Analyze(context.Background(), img, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if out.RichnessRows != 0 || out.RichnessCols != 0 {
		t.Errorf("richness map = %dx%d, want empty", out.RichnessRows, out.RichnessCols)
	}
	if out.RichFraction != 1 {
		t.Errorf("rich fraction = %v, want 1", out.RichFraction)
	}
}

func TestAnalyze_ConstantBorderAndJpegli(t *testing.T) {
	analyzer := newTestAnalyzer(t)
	img := createNoiseImage(32, 32)

	opts := DefaultOptions().WithBorder(BorderConstant).WithCodec(CodecJpegli).WithQuality(70)
	out, err := analyzer.Analyze(context.Background(), img, opts)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(out.Artifacts) != len(Labels) {
		t.Errorf("got %d artifacts, want %d", len(out.Artifacts), len(Labels))
	}
}

func TestAnalyze_Errors(t *testing.T) {
	analyzer := newTestAnalyzer(t)
	img := createGradientImage(16, 16)

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name     string
		ctx      context.Context
		img      image.Image
		opts     AnalysisOptions
		wantType apperrors.ErrorType
	}{
		{"quality out of range", context.Background(), img, DefaultOptions().WithQuality(0), apperrors.ErrorTypeValidation},
		{"percentile out of range", context.Background(), img, DefaultOptions().WithPercentile(120), apperrors.ErrorTypeValidation},
		{"patch size zero", context.Background(), img, DefaultOptions().WithPatchSize(0), apperrors.ErrorTypeValidation},
		{"nil image", context.Background(), nil, DefaultOptions(), apperrors.ErrorTypeValidation},
		{"empty image", context.Background(), image.NewRGBA(image.Rect(0, 0, 0, 0)), DefaultOptions(), apperrors.ErrorTypeValidation},
		{"deadline exceeded", expired, img, DefaultOptions(), apperrors.ErrorTypeTimeout},
		{"cancelled", cancelled, img, DefaultOptions(), apperrors.ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := analyzer.Analyze(tt.ctx, tt.img, tt.opts)
			if out != nil {
				t.Error("Expected no partial output on failure")
			}
			if !apperrors.IsType(err, tt.wantType) {
				t.Errorf("error = %v, want type %s", err, tt.wantType)
			}
		})
	}
}

func TestAnalyze_AfterClose(t *testing.T) {
	analyzer, err := NewImageAnalyzer()
	if err != nil {
		t.Fatalf("Failed to create image analyzer: %v", err)
	}
	analyzer.Close()

	if _, err := analyzer.Analyze(context.Background(), createNoiseImage(64, 64), DefaultOptions()); err != nil {
		t.Errorf("Expected analysis to fall back to the calling goroutine, got %v", err)
	}
}
