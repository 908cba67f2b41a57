// Package server provides the HTTP front end for thumbnail embedding.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// EmbedRequest is the HTTP request body for embedding a thumbnail.
type EmbedRequest struct {
	// VideoPath is the video on the server's filesystem.
	VideoPath string `json:"video_path" validate:"required"`
	// ImagePath is an image file on the server's filesystem.
	ImagePath string `json:"image_path,omitempty"`
	// ImageData is base64 image bytes, optionally as a data URL.
	ImageData string `json:"image_data,omitempty"`
	// SaveMode is "overwrite" or "new". Defaults to "new".
	SaveMode string `json:"save_mode,omitempty" validate:"omitempty,oneof=overwrite new"`
	// OutputFilename names the new file (without extension) in "new" mode.
	OutputFilename string `json:"output_filename,omitempty"`
	// PushToS3 uploads the resulting video to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// EmbedResponse is the HTTP response after a synchronous embed.
type EmbedResponse struct {
	// Message is the human-readable success message.
	Message string `json:"message"`
	// FinalPath is where the video with the thumbnail now lives.
	FinalPath string `json:"final_path"`
	// Mode is the save mode that was applied.
	Mode string `json:"mode"`
	// VideoURL is the S3 URL of the video (if push_to_s3=true).
	VideoURL string `json:"video_url,omitempty"`
	// Error and Code are set when the embed succeeded but publishing failed.
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// CreateJobResponse is the HTTP response after creating a job.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	VideoPath   string     `json:"video_path"`
	Mode        string     `json:"mode"`
	OutputPath  string     `json:"output_path,omitempty"`
	Message     string     `json:"message,omitempty"`
	VideoURL    string     `json:"video_url,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListJobsResponse is the HTTP response for listing jobs.
type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is "ok" when ffmpeg can be run, "degraded" otherwise.
	Status string `json:"status"`
	// FFmpeg is the first line of `ffmpeg -version`.
	FFmpeg string `json:"ffmpeg,omitempty"`
	// Error describes why the ffmpeg probe failed.
	Error string `json:"error,omitempty"`
}
