package models

import "strings"

// Video is a single entry of a course playlist.
type Video struct {
	VideoID     ID     `json:"videoId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	VideoURL    string `json:"videoUrl"`
	PostDate    string `json:"postDate,omitempty"`
	PostTime    string `json:"postTime,omitempty"`
}

// CourseWithVideos is the course plus its playlist. The video service spells the
// playlist field "vedios"; the order of the slice is the playback order.
type CourseWithVideos struct {
	Course
	Videos []Video `json:"vedios"`
}

// VideoInput is the payload of the upload form.
type VideoInput struct {
	Title       string      `validate:"required"`
	Description string      `validate:"max=5000"`
	File        *Attachment `validate:"required"`
}

// Validate checks the title and file before the upload is attempted.
func (in *VideoInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || in.File == nil || in.File.Body == nil {
		return &ValidationError{Message: "Please fill in video title and select a video file."}
	}
	return validateStruct(in)
}
