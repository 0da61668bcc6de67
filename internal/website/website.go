// Package website serves the dashboard pages: the course list, course and video
// management, the course edit form and the course details player.
package website

import (
	"context"
	"embed"
	"io"
	"io/fs"
	"net/http"

	"github.com/musickatta/katta-admin/internal/guard"
	"github.com/musickatta/katta-admin/internal/models"
	"github.com/musickatta/katta-admin/internal/session"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates returns the page templates.
func Templates() fs.FS {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// PlayerEntryPoint is the script bundled for the course details page.
const PlayerEntryPoint = "ui/pages/player.ts"

// DashboardEntryPoint is the script bundled for the management pages.
const DashboardEntryPoint = "ui/pages/dashboard.ts"

// Backend is the subset of the resource client used by the pages.
type Backend interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	GetCourse(ctx context.Context, courseID string) (*models.Course, error)
	CreateCourse(ctx context.Context, in *models.CourseInput) (*models.Course, error)
	UpdateCourse(ctx context.Context, courseID string, in *models.CourseInput) (*models.Course, error)
	CourseWithVideos(ctx context.Context, courseID string) (*models.CourseWithVideos, error)
	UploadVideo(ctx context.Context, courseID string, in *models.VideoInput) error
	DeleteVideo(ctx context.Context, videoID string) error
}

// BackendFunc returns the backend to call on behalf of a session.
type BackendFunc func(s session.Session) Backend

// Renderer renders a page template.
type Renderer interface {
	Render(w io.Writer, templateName, title, entryPoint string, data any) error
}

// Handlers serves the dashboard pages.
type Handlers struct {
	backends BackendFunc
	render   Renderer
	guard    *guard.Guard
	scripts  bool
}

// New creates the page handlers. Without scripts the pages are rendered without their
// bundled entry points.
func New(backends BackendFunc, render Renderer, g *guard.Guard, scripts bool) *Handlers {
	return &Handlers{backends: backends, render: render, guard: g, scripts: scripts}
}

// Register adds the dashboard routes to mux. Pages that only read are open to any
// logged in user; pages that change courses or videos need the ADMIN role.
func (h *Handlers) Register(mux *http.ServeMux) {
	login, admin := session.RequireLogin, session.RequireAdmin

	mux.Handle("GET /dashboard", h.guard.RequireFunc(login, h.DashboardHandler))
	mux.Handle("GET /dashboard/course-details/{courseId}", h.guard.RequireFunc(login, h.CourseDetailsHandler))

	mux.Handle("GET /dashboard/video-management", h.guard.RequireFunc(admin, h.VideoManagementHandler))
	mux.Handle("POST /dashboard/video-management/courses", h.guard.RequireFunc(admin, h.CreateCourseHandler))
	mux.Handle("POST /dashboard/video-management/videos", h.guard.RequireFunc(admin, h.UploadVideoHandler))
	mux.Handle("POST /dashboard/video-management/videos/{videoId}/delete", h.guard.RequireFunc(admin, h.DeleteVideoHandler))
	mux.Handle("GET /dashboard/courses/{courseId}", h.guard.RequireFunc(admin, h.EditCourseHandler))
	mux.Handle("POST /dashboard/courses/{courseId}", h.guard.RequireFunc(admin, h.UpdateCourseHandler))
}

// Layout is embedded in every page.
type Layout struct {
	User    session.Principal
	IsAdmin bool
}

func layoutFor(ctx context.Context) Layout {
	s, ok := guard.SessionFromContext(ctx)
	if !ok {
		return Layout{}
	}
	return Layout{User: s.Principal(), IsAdmin: session.IsAdmin(s)}
}

// backend returns the backend for the session the guard admitted.
func (h *Handlers) backend(ctx context.Context) Backend {
	s, _ := guard.SessionFromContext(ctx)
	return h.backends(s)
}

func (h *Handlers) page(w http.ResponseWriter, r *http.Request, status int, name, title, entryPoint string, data any) {
	if !h.scripts {
		entryPoint = ""
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.render.Render(w, name, title, entryPoint, data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("Failed to render template")
	}
}
