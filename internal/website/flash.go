package website

import (
	"net/url"

	"github.com/musickatta/katta-admin/internal/client"
)

// Flash codes carried on the redirect after a successful action.
const (
	flashLoggedIn      = "login"
	flashCourseCreated = "course-created"
	flashVideoUploaded = "video-uploaded"
	flashVideoDeleted  = "video-deleted"
)

// flashBanner turns the flash query parameter into a success banner.
func flashBanner(q url.Values) *client.Banner {
	switch q.Get("flash") {
	case flashLoggedIn:
		return client.SuccessBanner("Successfully logged in!")
	case flashCourseCreated:
		return client.SuccessBanner("Course created successfully with ID: " + q.Get("course"))
	case flashVideoUploaded:
		return client.SuccessBanner("Video uploaded successfully.")
	case flashVideoDeleted:
		return client.SuccessBanner("Video deleted successfully.")
	}
	return nil
}

// managementURL is the video management page with a selected course.
func managementURL(courseID string, loadVideos bool, flash string) string {
	q := url.Values{}
	if courseID != "" {
		q.Set("course", courseID)
	}
	if loadVideos {
		q.Set("load", "1")
	}
	if flash != "" {
		q.Set("flash", flash)
	}
	if len(q) == 0 {
		return "/dashboard/video-management"
	}
	return "/dashboard/video-management?" + q.Encode()
}
