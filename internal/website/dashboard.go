package website

import (
	"net/http"

	"github.com/musickatta/katta-admin/internal/client"
	"github.com/musickatta/katta-admin/internal/models"
)

// DashboardPage is the data of the dashboard template.
type DashboardPage struct {
	Layout
	Banner  *client.Banner
	Courses []models.Course
}

// DashboardHandler lists every course.
func (h *Handlers) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data := DashboardPage{Layout: layoutFor(ctx), Banner: flashBanner(r.URL.Query())}

	courses, err := h.backend(ctx).ListCourses(ctx)
	if err != nil {
		data.Banner = client.ErrorBanner(err)
	} else {
		data.Courses = courses
	}

	h.page(w, r, http.StatusOK, "dashboard", "Dashboard", "", data)
}
