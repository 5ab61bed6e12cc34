package factory

import (
	"testing"

	"github.com/anime-shed/image-forensics-go/internal/analyzer"
	"github.com/anime-shed/image-forensics-go/internal/config"
	"github.com/google/go-cmp/cmp"
)

func TestAnalyzerFactory_DefaultOptions(t *testing.T) {
	cfg := config.Default()
	cfg.PatchSize = 16
	cfg.ThresholdPercentile = 50
	cfg.ELAQuality = 75
	cfg.LBPBorder = config.BorderConstant
	cfg.ELACodec = config.CodecJpegli

	got, err := NewAnalyzerFactory(cfg).DefaultOptions()
	if err != nil {
		t.Fatalf("DefaultOptions returned error: %v", err)
	}
	want := analyzer.AnalysisOptions{
		PatchSize:           16,
		ThresholdPercentile: 50,
		ELAQuality:          75,
		Border:              analyzer.BorderConstant,
		Codec:               analyzer.CodecJpegli,
		Concurrent:          true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzerFactory_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"border", func(c *config.Config) { c.LBPBorder = "reflect" }},
		{"codec", func(c *config.Config) { c.ELACodec = "webp" }},
		{"quality", func(c *config.Config) { c.ELAQuality = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			if _, err := NewAnalyzerFactory(cfg).DefaultOptions(); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestStorageFactory_CreateSources(t *testing.T) {
	cfg := config.Default()
	f := NewStorageFactory(cfg)

	sources, err := f.CreateSources(false)
	if err != nil {
		t.Fatalf("CreateSources returned error: %v", err)
	}
	if sources.HTTP == nil || sources.Blob != nil || sources.Local != nil {
		t.Errorf("unexpected sources %+v", sources)
	}

	sources, err = f.CreateSources(true)
	if err != nil {
		t.Fatalf("CreateSources returned error: %v", err)
	}
	if sources.Local == nil {
		t.Error("Expected local source when allowed")
	}
}

func TestStorageFactory_CreateSink(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	f := NewStorageFactory(cfg)

	sink, err := f.CreateSink(LocalStorage)
	if err != nil {
		t.Fatalf("CreateSink returned error: %v", err)
	}
	if sink.Name() != "local" {
		t.Errorf("Expected local sink, got %s", sink.Name())
	}

	if _, err := f.CreateSink(HTTPStorage); err == nil {
		t.Error("Expected http sink to be unsupported")
	}
	if _, err := f.CreateSink(AzureStorage); err == nil {
		t.Error("Expected azure sink without a container to fail")
	}

	cfg.Azure = config.AzureConfig{AccountName: "acct", AccountKey: "not base64!", Container: "out"}
	if _, err := NewStorageFactory(cfg).CreateSink(AzureStorage); err == nil {
		t.Error("Expected invalid azure key to fail")
	}
}
