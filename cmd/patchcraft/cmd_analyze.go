package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anime-shed/image-forensics-go/internal/analyzer"
	"github.com/anime-shed/image-forensics-go/internal/config"
	"github.com/anime-shed/image-forensics-go/internal/container"
	"github.com/anime-shed/image-forensics-go/internal/logger"
	"github.com/anime-shed/image-forensics-go/pkg/models"
)

var analyzeFlags struct {
	outputDir  string
	prefix     string
	sink       string
	quality    int
	percentile float64
	patchSize  int
	border     string
	codec      string
	sequential bool
	jsonOut    bool
	logJSON    bool
	logLevel   string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image-path-or-url>",
	Short: "Segment an image by texture richness and run ELA on both regions",
	Long: `Analyze scores every patch of the image with uniform LBP variance, thresholds the
scores at a percentile and writes six PNG artifacts:

  rich_texture_mask.png  poor_texture_mask.png
  rich_texture.png       poor_texture.png
  rich_texture_ela.png   poor_texture_ela.png

Defaults come from the same environment variables and CONFIG_FILE as the API server.

Usage:
  patchcraft analyze photo.jpg -o out/
  patchcraft analyze https://example.com/photo.jpg -o out/ --quality 75 --codec jpegli`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFlags.outputDir, "output", "o", "./output", "Directory the artifacts are written to")
	f.StringVar(&analyzeFlags.prefix, "prefix", ".", "Sub-directory (or blob prefix) for this run")
	f.StringVar(&analyzeFlags.sink, "sink", config.SinkLocal, "Artifact sink: local or azure")
	f.IntVar(&analyzeFlags.quality, "quality", analyzer.DefaultELAQuality, "JPEG quality used for ELA recompression (1-100)")
	f.Float64Var(&analyzeFlags.percentile, "percentile", analyzer.DefaultThresholdPercentile, "Richness percentile separating poor from rich texture (0-100)")
	f.IntVar(&analyzeFlags.patchSize, "patch-size", analyzer.DefaultPatchSize, "Side of the square patch scored for texture richness")
	f.StringVar(&analyzeFlags.border, "border", config.BorderReplicate, "LBP border handling: replicate or constant")
	f.StringVar(&analyzeFlags.codec, "codec", config.CodecStdlib, "Recompression codec: stdlib or jpegli")
	f.BoolVar(&analyzeFlags.sequential, "sequential", false, "Run the rich and poor ELA branches one after another")
	f.BoolVar(&analyzeFlags.jsonOut, "json", false, "Print the full analysis response as JSON")
	f.BoolVar(&analyzeFlags.logJSON, "log-json", false, "Emit JSON logs instead of text")
	f.StringVar(&analyzeFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: $LOG_LEVEL)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if !analyzeFlags.logJSON {
		logger.UseTextFormatter()
	}
	if analyzeFlags.logLevel != "" {
		logger.Logger.SetLevel(logger.ParseLevel(analyzeFlags.logLevel))
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	flags := cmd.Flags()
	cfg.OutputDir = analyzeFlags.outputDir
	cfg.Sink = analyzeFlags.sink
	if flags.Changed("border") {
		cfg.LBPBorder = analyzeFlags.border
	}
	if flags.Changed("codec") {
		cfg.ELACodec = analyzeFlags.codec
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c, err := container.NewContainerWithOptions(cfg, container.Options{AllowLocalPaths: true})
	if err != nil {
		return err
	}
	defer c.Close()

	options := c.DefaultOptions()
	if flags.Changed("quality") {
		options = options.WithQuality(analyzeFlags.quality)
	}
	if flags.Changed("percentile") {
		options = options.WithPercentile(analyzeFlags.percentile)
	}
	if flags.Changed("patch-size") {
		options = options.WithPatchSize(analyzeFlags.patchSize)
	}
	if analyzeFlags.sequential {
		options = options.Sequential()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := c.Service().AnalyzeLocation(ctx, args[0], analyzeFlags.prefix, options)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeFlags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printReport(out, resp)
	return nil
}

func printReport(w io.Writer, resp *models.AnalysisResponse) {
	d := resp.Diagnostics
	fmt.Fprintf(w, "Source:     %s (%dx%d)\n", resp.Source, d.Width, d.Height)
	fmt.Fprintf(w, "Patches:    %dx%d of %dpx, threshold %.4f at p%g\n", d.RichnessCols, d.RichnessRows, d.PatchSize, d.Threshold, d.Percentile)
	fmt.Fprintf(w, "Rich:       %.1f%% of pixels\n", d.RichFraction*100)
	fmt.Fprintf(w, "ELA:        q%d %s, rich max %d mean %.2f, poor max %d mean %.2f\n",
		d.Quality, d.Codec, d.RichELA.MaxDiff, d.RichELA.MeanDiff, d.PoorELA.MaxDiff, d.PoorELA.MeanDiff)
	fmt.Fprintf(w, "Artifacts:\n")
	for _, a := range resp.Artifacts {
		fmt.Fprintf(w, "  %-13s %s\n", a.Label, a.Location)
	}
	for _, warning := range resp.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
}
