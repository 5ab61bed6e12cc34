package models

// AnalyzeRequest asks for a forensics run over an image location (URL, blob URL or path).
// Optional parameters fall back to server defaults.
type AnalyzeRequest struct {
	Source              string   `json:"source" form:"source" binding:"required"`
	OutputPrefix        string   `json:"output_prefix,omitempty" form:"output_prefix"`
	Quality             *int     `json:"quality,omitempty" form:"quality"`
	ThresholdPercentile *float64 `json:"threshold_percentile,omitempty" form:"threshold_percentile"`
	PatchSize           *int     `json:"patch_size,omitempty" form:"patch_size"`
}

// UploadRequest carries the form fields accompanying a multipart image upload
type UploadRequest struct {
	OutputPrefix        string   `form:"output_prefix"`
	Quality             *int     `form:"quality"`
	ThresholdPercentile *float64 `form:"threshold_percentile"`
	PatchSize           *int     `form:"patch_size"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version,omitempty"`
}
