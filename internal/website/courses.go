package website

import (
	"net/http"

	"github.com/musickatta/katta-admin/internal/client"
	"github.com/musickatta/katta-admin/internal/models"
	"github.com/rs/zerolog/log"
)

// CourseEditPage is the data of the course edit template.
type CourseEditPage struct {
	Layout
	Banner   *client.Banner
	CourseID string
	Course   *models.Course
	Form     models.CourseInput
	Discount int
}

// EditCourseHandler shows the edit form prefilled from the course.
func (h *Handlers) EditCourseHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courseID := r.PathValue("courseId")

	data := CourseEditPage{Layout: layoutFor(ctx), CourseID: courseID}

	course, err := h.backend(ctx).GetCourse(ctx, courseID)
	if err != nil {
		data.Banner = client.ErrorBanner(err)
	} else {
		data.Course = course
		data.Form = models.InputFromCourse(*course)
		data.Discount = course.Discount()
	}

	h.page(w, r, http.StatusOK, "course-edit", "Edit Course", DashboardEntryPoint, data)
}

// UpdateCourseHandler saves the edit form and shows the page again with the outcome.
func (h *Handlers) UpdateCourseHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courseID := r.PathValue("courseId")

	in, cleanup, err := courseInputFromForm(r)
	defer cleanup()

	data := CourseEditPage{Layout: layoutFor(ctx), CourseID: courseID}
	status := http.StatusOK

	if err == nil {
		_, err = h.backend(ctx).UpdateCourse(ctx, courseID, &in)
	}

	if err != nil {
		log.Ctx(ctx).Info().Err(err).Str("course_id", courseID).Msg("Course update failed")
		data.Banner = client.ErrorBanner(err)
		status = statusFor(err)
	} else {
		log.Ctx(ctx).Info().Str("course_id", courseID).Msg("Course updated")
		data.Banner = client.SuccessBanner("Course updated successfully.")
	}

	in.Image = nil
	data.Form = in
	data.Discount = in.DiscountPreview()

	h.page(w, r, status, "course-edit", "Edit Course", DashboardEntryPoint, data)
}
