package models

import "time"

// ArtifactLocation names where one labelled artifact was stored
type ArtifactLocation struct {
	Label    string `json:"label"`
	FileName string `json:"file_name"`
	Location string `json:"location"`
}

// ELASummary reports the raw error statistics of one ELA branch
type ELASummary struct {
	MaxDiff  uint8   `json:"max_diff"`
	MeanDiff float64 `json:"mean_diff"`
}

// Diagnostics carries the numbers behind a segmentation + ELA run
type Diagnostics struct {
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	RichnessRows int        `json:"richness_rows"`
	RichnessCols int        `json:"richness_cols"`
	Threshold    float64    `json:"threshold"`
	RichFraction float64    `json:"rich_fraction"`
	RichELA      ELASummary `json:"rich_ela"`
	PoorELA      ELASummary `json:"poor_ela"`
	PatchSize    int        `json:"patch_size"`
	Percentile   float64    `json:"threshold_percentile"`
	Quality      int        `json:"ela_quality"`
	Codec        string     `json:"codec"`
	Border       string     `json:"border"`
}

// AnalysisResponse is the result of one forensics run.
// Artifacts are listed in fixed label order.
type AnalysisResponse struct {
	ID                string             `json:"id"`
	Source            string             `json:"source"`
	Timestamp         time.Time          `json:"timestamp"`
	ProcessingTimeSec float64            `json:"processing_time_sec"`
	Artifacts         []ArtifactLocation `json:"artifacts"`
	Diagnostics       Diagnostics        `json:"diagnostics"`
	Warnings          []string           `json:"warnings,omitempty"`
}

// Location returns the stored location of the artifact with label
func (r *AnalysisResponse) Location(label string) (string, bool) {
	for _, a := range r.Artifacts {
		if a.Label == label {
			return a.Location, true
		}
	}
	return "", false
}
