package analyzer

import (
	"errors"
	"image"
	"image/color"
	"testing"

	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
)

// fakeRecompressor returns a canned image and records the requested quality
type fakeRecompressor struct {
	out     image.Image
	err     error
	quality int
}

func (f *fakeRecompressor) Name() string { return "fake" }

func (f *fakeRecompressor) Recompress(img *image.RGBA, quality int) (image.Image, error) {
	f.quality = quality
	if f.err != nil {
		return nil, f.err
	}
	if f.out != nil {
		return f.out, nil
	}
	return img, nil
}

// createNoiseImage creates a deterministic high-frequency color image
func createNoiseImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := x*37 + y*91 + (x*y)%53
			img.Set(x, y, color.RGBA{uint8(v * 7), uint8(v * 13), uint8(v * 3), 255})
		}
	}
	return img
}

func TestELA_FlatImagesAreExact(t *testing.T) {
	tests := []struct {
		name string
		fill color.RGBA
	}{
		{"black", color.RGBA{0, 0, 0, 255}},
		{"mid gray", color.RGBA{128, 128, 128, 255}},
	}

	ela := NewErrorLevelAnalyzer(NewStdlibRecompressor())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ela.Analyze(createTestImage(32, 32, tt.fill), DefaultELAQuality)
			if err != nil {
				t.Fatalf("Analyze returned error: %v", err)
			}
			if result.MaxDiff != 0 || result.MeanDiff != 0 {
				t.Errorf("max=%d mean=%v, want zero difference", result.MaxDiff, result.MeanDiff)
			}
			for i := 0; i < len(result.Image.Pix); i += 4 {
				if result.Image.Pix[i] != 0 || result.Image.Pix[i+1] != 0 || result.Image.Pix[i+2] != 0 {
					t.Fatalf("pixel %d is not black", i/4)
				}
			}
		})
	}
}

func TestELA_Normalization(t *testing.T) {
	original := createTestImage(2, 2, color.RGBA{100, 100, 100, 255})
	decoded := createTestImage(2, 2, color.RGBA{100, 100, 100, 255})
	decoded.SetRGBA(0, 0, color.RGBA{110, 100, 100, 255})
	decoded.SetRGBA(1, 0, color.RGBA{100, 95, 100, 255})
	decoded.SetRGBA(0, 1, color.RGBA{100, 100, 99, 255})

	result, err := NewErrorLevelAnalyzer(&fakeRecompressor{out: decoded}).Analyze(original, 90)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if result.MaxDiff != 10 {
		t.Errorf("MaxDiff = %d, want 10", result.MaxDiff)
	}
	if want := 16.0 / 12.0; result.MeanDiff != want {
		t.Errorf("MeanDiff = %v, want %v", result.MeanDiff, want)
	}

	tests := []struct {
		x, y int
		want color.RGBA
	}{
		{0, 0, color.RGBA{255, 0, 0, 255}},
		{1, 0, color.RGBA{0, 127, 0, 255}},
		{0, 1, color.RGBA{0, 0, 25, 255}},
		{1, 1, color.RGBA{0, 0, 0, 255}},
	}
	for _, tt := range tests {
		if got := result.Image.RGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestELA_QualityClamped(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1},
		{-20, 1},
		{1, 1},
		{75, 75},
		{100, 100},
		{150, 100},
	}

	img := createTestImage(4, 4, color.RGBA{1, 2, 3, 255})
	for _, tt := range tests {
		fake := &fakeRecompressor{}
		if _, err := NewErrorLevelAnalyzer(fake).Analyze(img, tt.in); err != nil {
			t.Fatalf("Analyze(q=%d) returned error: %v", tt.in, err)
		}
		if fake.quality != tt.want {
			t.Errorf("quality %d encoded as %d, want %d", tt.in, fake.quality, tt.want)
		}
	}
}

func TestELA_CodecErrors(t *testing.T) {
	img := createTestImage(8, 8, color.RGBA{1, 2, 3, 255})
	encodeErr := errors.New("encoder exploded")

	tests := []struct {
		name string
		fake *fakeRecompressor
	}{
		{"encode failure", &fakeRecompressor{err: encodeErr}},
		{"dimension change", &fakeRecompressor{out: createTestImage(4, 8, color.RGBA{A: 255})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewErrorLevelAnalyzer(tt.fake).Analyze(img, 90)
			if result != nil {
				t.Error("Expected no result on codec failure")
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeCodec) {
				t.Errorf("error = %v, want codec error", err)
			}
		})
	}

	_, err := NewErrorLevelAnalyzer(&fakeRecompressor{err: encodeErr}).Analyze(img, 90)
	if !errors.Is(err, encodeErr) {
		t.Errorf("Expected codec error to wrap the encoder failure, got %v", err)
	}
}

func TestELA_LowerQualityLosesMore(t *testing.T) {
	img := createNoiseImage(64, 64)
	ela := NewErrorLevelAnalyzer(NewStdlibRecompressor())

	low, err := ela.Analyze(img, 10)
	if err != nil {
		t.Fatalf("Analyze(q=10) returned error: %v", err)
	}
	high, err := ela.Analyze(img, 95)
	if err != nil {
		t.Fatalf("Analyze(q=95) returned error: %v", err)
	}
	if low.MeanDiff <= high.MeanDiff {
		t.Errorf("mean difference at q=10 (%v) should exceed q=95 (%v)", low.MeanDiff, high.MeanDiff)
	}
	if low.MaxDiff == 0 {
		t.Error("Expected visible error at q=10")
	}
}

func TestELA_MaxDiffMapsTo255(t *testing.T) {
	result, err := NewErrorLevelAnalyzer(nil).Analyze(createNoiseImage(32, 32), 50)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if result.MaxDiff == 0 {
		t.Fatal("Expected a non-zero difference")
	}

	var brightest uint8
	for i := 0; i < len(result.Image.Pix); i += 4 {
		for ch := 0; ch < 3; ch++ {
			if v := result.Image.Pix[i+ch]; v > brightest {
				brightest = v
			}
		}
		if result.Image.Pix[i+3] != 255 {
			t.Fatalf("pixel %d is not opaque", i/4)
		}
	}
	if brightest != 255 {
		t.Errorf("brightest channel = %d, want 255", brightest)
	}
}

func TestJpegliRecompressor_PreservesDimensions(t *testing.T) {
	img := createNoiseImage(40, 24)
	out, err := NewJpegliRecompressor().Recompress(img, 80)
	if err != nil {
		t.Fatalf("Recompress returned error: %v", err)
	}
	if out.Bounds().Dx() != 40 || out.Bounds().Dy() != 24 {
		t.Errorf("bounds = %v, want 40x24", out.Bounds())
	}
}

func TestNewRecompressor(t *testing.T) {
	tests := []struct {
		codec    Codec
		wantName string
		wantErr  bool
	}{
		{CodecStdlib, "stdlib", false},
		{"", "stdlib", false},
		{CodecJpegli, "jpegli", false},
		{"png", "", true},
	}
	for _, tt := range tests {
		r, err := NewRecompressor(tt.codec)
		if (err != nil) != tt.wantErr {
			t.Fatalf("NewRecompressor(%q) error = %v", tt.codec, err)
		}
		if err == nil && r.Name() != tt.wantName {
			t.Errorf("NewRecompressor(%q).Name() = %s, want %s", tt.codec, r.Name(), tt.wantName)
		}
	}
}
