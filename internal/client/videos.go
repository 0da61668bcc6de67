package client

import (
	"context"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/musickatta/katta-admin/internal/models"
)

// CourseWithVideos returns the course and its playlist in playback order.
func (c *Client) CourseWithVideos(ctx context.Context, courseID string) (*models.CourseWithVideos, error) {
	if courseID == "" {
		return nil, &models.ValidationError{Message: "Please select a course before loading videos.", Fields: []string{"courseId"}}
	}

	var course models.CourseWithVideos
	err := c.do(ctx, call{
		op:       "course_videos",
		method:   http.MethodGet,
		path:     "/api/videos/by-course/" + url.PathEscape(courseID),
		fallback: "Failed to load course and videos",
		notFound: "Course not found for the provided ID.",
	}, &course)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// UploadVideo sends the title, description and video file as a multipart form.
func (c *Client) UploadVideo(ctx context.Context, courseID string, in *models.VideoInput) error {
	if courseID == "" {
		return &models.ValidationError{Message: "Please select a course before uploading a video.", Fields: []string{"courseId"}}
	}
	if err := in.Validate(); err != nil {
		return err
	}

	body, contentType := multipartBody(func(mw *multipart.Writer) error {
		err := writeFields(mw, [][2]string{
			{"title", in.Title},
			{"description", in.Description},
		})
		if err != nil {
			return err
		}
		return writeFile(mw, "video", in.File.Filename, in.File.Body)
	})

	return c.do(ctx, call{
		op:          "upload_video",
		method:      http.MethodPost,
		path:        "/videos/upload/" + url.PathEscape(courseID),
		body:        body,
		contentType: contentType,
		fallback:    "Failed to upload video",
	}, nil)
}

// DeleteVideo removes a video from its course.
func (c *Client) DeleteVideo(ctx context.Context, videoID string) error {
	if videoID == "" {
		return &models.ValidationError{Message: "Please select a video to delete.", Fields: []string{"videoId"}}
	}

	return c.do(ctx, call{
		op:       "delete_video",
		method:   http.MethodDelete,
		path:     "/videos/delete/" + url.PathEscape(videoID),
		fallback: "Failed to delete video",
	}, nil)
}
