package website

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/musickatta/katta-admin/internal/client"
	"github.com/musickatta/katta-admin/internal/models"
	"github.com/rs/zerolog/log"
)

// maxMemory is how much of a multipart form is kept in memory; the rest spills to disk.
const maxMemory = 32 << 20

// ManagementPage is the data of the video management template.
type ManagementPage struct {
	Layout
	Banner     *client.Banner
	Courses    []models.Course
	SelectedID string
	Selected   *models.Course
	Loaded     *models.CourseWithVideos
	CourseForm models.CourseInput
	VideoTitle string
	VideoDesc  string
}

// VideoManagementHandler shows the create course and upload video forms. The course
// query parameter selects a course and load also fetches its videos.
func (h *Handlers) VideoManagementHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := ManagementPage{SelectedID: q.Get("course")}
	banner := h.loadManagement(r.Context(), &data, q.Get("load") != "")
	if flash := flashBanner(q); flash != nil && banner == nil {
		banner = flash
	}
	data.Banner = banner

	h.page(w, r, http.StatusOK, "video-management", "Video Management", DashboardEntryPoint, data)
}

// loadManagement fills the course list, the selected course and optionally its videos.
// It returns the banner of the first failure.
func (h *Handlers) loadManagement(ctx context.Context, data *ManagementPage, loadVideos bool) *client.Banner {
	backend := h.backend(ctx)
	data.Layout = layoutFor(ctx)

	var banner *client.Banner
	fail := func(err error) {
		if banner == nil {
			banner = client.ErrorBanner(err)
		}
	}

	courses, err := backend.ListCourses(ctx)
	if err != nil {
		fail(err)
	} else {
		data.Courses = courses
	}

	if data.SelectedID == "" {
		return banner
	}

	selected, err := backend.GetCourse(ctx, data.SelectedID)
	if err != nil {
		fail(err)
	} else {
		data.Selected = selected
	}

	if loadVideos {
		loaded, err := backend.CourseWithVideos(ctx, data.SelectedID)
		if err != nil {
			fail(err)
		} else {
			data.Loaded = loaded
		}
	}
	return banner
}

// CreateCourseHandler creates a course from the form, with an optional image.
func (h *Handlers) CreateCourseHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in, cleanup, err := courseInputFromForm(r)
	defer cleanup()
	if err != nil {
		h.managementError(w, r, ManagementPage{}, err)
		return
	}

	course, err := h.backend(ctx).CreateCourse(ctx, &in)
	if err != nil {
		in.Image = nil
		h.managementError(w, r, ManagementPage{CourseForm: in}, err)
		return
	}

	log.Ctx(ctx).Info().Str("course_id", string(course.CourseID)).Msg("Course created")
	http.Redirect(w, r, managementURL(string(course.CourseID), false, flashCourseCreated), http.StatusSeeOther)
}

// UploadVideoHandler uploads a video to the selected course.
func (h *Handlers) UploadVideoHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.managementError(w, r, ManagementPage{}, err)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	courseID := strings.TrimSpace(r.FormValue("courseId"))
	in := models.VideoInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
	if file, header, err := r.FormFile("video"); err == nil {
		defer file.Close()
		in.File = &models.Attachment{Filename: header.Filename, Body: file}
	}

	if err := h.backend(ctx).UploadVideo(ctx, courseID, &in); err != nil {
		h.managementError(w, r, ManagementPage{SelectedID: courseID, VideoTitle: in.Title, VideoDesc: in.Description}, err)
		return
	}

	log.Ctx(ctx).Info().Str("course_id", courseID).Str("title", in.Title).Msg("Video uploaded")
	http.Redirect(w, r, managementURL(courseID, true, flashVideoUploaded), http.StatusSeeOther)
}

// DeleteVideoHandler deletes a video and reloads the course it belonged to.
func (h *Handlers) DeleteVideoHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoID := r.PathValue("videoId")
	courseID := strings.TrimSpace(r.PostFormValue("courseId"))

	if err := h.backend(ctx).DeleteVideo(ctx, videoID); err != nil {
		h.managementError(w, r, ManagementPage{SelectedID: courseID}, err)
		return
	}

	log.Ctx(ctx).Info().Str("video_id", videoID).Msg("Video deleted")
	http.Redirect(w, r, managementURL(courseID, courseID != "", flashVideoDeleted), http.StatusSeeOther)
}

// managementError re-renders the management page with the failure banner, keeping the
// submitted form values.
func (h *Handlers) managementError(w http.ResponseWriter, r *http.Request, data ManagementPage, err error) {
	log.Ctx(r.Context()).Info().Err(err).Str("path", r.URL.Path).Msg("Dashboard action failed")

	_ = h.loadManagement(r.Context(), &data, data.SelectedID != "")
	data.Banner = client.ErrorBanner(err)

	h.page(w, r, statusFor(err), "video-management", "Video Management", DashboardEntryPoint, data)
}

// courseInputFromForm reads the create or update course form. The returned cleanup
// removes any spilled multipart files.
func courseInputFromForm(r *http.Request) (models.CourseInput, func(), error) {
	cleanup := func() {}
	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return models.CourseInput{}, cleanup, err
	}

	in := models.CourseInput{
		CourseName:     r.FormValue("courseName"),
		Details:        r.FormValue("details"),
		Price:          r.FormValue("price"),
		OriginalPrice:  r.FormValue("originalPrice"),
		Status:         r.FormValue("status"),
		CourseDuration: r.FormValue("courseDuration"),
		Keywords:       splitKeywords(r.FormValue("keywords")),
	}

	if r.MultipartForm == nil {
		return in, cleanup, nil
	}

	var file multipart.File
	cleanup = func() {
		if file != nil {
			file.Close()
		}
		_ = r.MultipartForm.RemoveAll()
	}
	if f, header, err := r.FormFile("image"); err == nil && header.Size > 0 {
		file = f
		in.Image = &models.Attachment{Filename: header.Filename, Body: f}
	} else if err == nil {
		f.Close()
	}
	return in, cleanup, nil
}

func splitKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// statusFor is the response status of a page re-rendered after err. Backend failures
// still render the page normally with the banner.
func statusFor(err error) int {
	if errors.Is(err, models.ErrValidation) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}
