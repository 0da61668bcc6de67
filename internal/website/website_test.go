package website

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/musickatta/katta-admin/internal/assets"
	"github.com/musickatta/katta-admin/internal/client"
	"github.com/musickatta/katta-admin/internal/guard"
	"github.com/musickatta/katta-admin/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves the course and video endpoints and records the calls it received.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeBackend) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
}

func (f *fakeBackend) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (f *fakeBackend) handler() http.Handler {
	course := map[string]any{
		"courseId": "c1", "courseName": "Carnatic Basics", "details": "Start here",
		"price": "900", "originalPrice": "1200", "status": "active",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /course/all-courses", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []any{course, map[string]any{"courseId": 2, "courseName": "Tabla Rhythms", "price": 500}})
	})
	mux.HandleFunc("GET /course/get-course/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "zz" {
			http.Error(w, "no such course", http.StatusNotFound)
			return
		}
		writeJSON(w, course)
	})
	mux.HandleFunc("POST /course/create-course", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"courseId": "c9", "courseName": "Veena"})
	})
	mux.HandleFunc("PUT /course/update-course/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, course)
	})
	mux.HandleFunc("GET /api/videos/by-course/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "c1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		withVideos := map[string]any{"vedios": []any{
			map[string]any{"videoId": "v1", "title": "Sarali Varisai", "videoUrl": "https://cdn.example.com/v1.mp4"},
			map[string]any{"videoId": "v2", "title": "Janta Varisai", "videoUrl": "https://cdn.example.com/v2.mp4"},
		}}
		for k, v := range course {
			withVideos[k] = v
		}
		writeJSON(w, withVideos)
	})
	mux.HandleFunc("DELETE /videos/delete/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		mux.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func admin() session.Session {
	return &session.AdminSession{AdminID: "7", Email: "asha@example.com", Role: session.RoleAdmin, IsLoggedIn: true}
}

func user() session.Session {
	return &session.OAuthUserSession{UserID: "u-42", FirstName: "Ravi", Email: "ravi@example.com", Role: session.RoleUser, IsLoggedIn: true}
}

// newTestSite returns the dashboard routes with s logged in, or nobody when s is nil.
func newTestSite(t *testing.T, s session.Session) (http.Handler, *fakeBackend) {
	t.Helper()

	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	if s != nil {
		require.NoError(t, store.Save(context.Background(), s))
	}
	g := guard.New(func(http.ResponseWriter, *http.Request) session.Store { return store }, "/login")

	pipeline, err := assets.New(assets.DefaultConfig(), Templates())
	require.NoError(t, err)

	c := client.New(client.Config{BaseURL: srv.URL})
	backends := func(s session.Session) Backend { return c.WithAccessToken(s.AccessToken()) }

	mux := http.NewServeMux()
	New(backends, pipeline, g, false).Register(mux)
	return mux, backend
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestDashboard(t *testing.T) {
	t.Run("lists courses for an admin", func(t *testing.T) {
		site, _ := newTestSite(t, admin())

		rec := serve(site, httptest.NewRequest(http.MethodGet, "/dashboard?flash=login", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, "Successfully logged in!")
		assert.Contains(t, body, "Carnatic Basics")
		assert.Contains(t, body, "Tabla Rhythms")
		assert.Contains(t, body, "25% off")
		assert.Contains(t, body, `href="/dashboard/courses/c1"`)
		assert.Contains(t, body, `href="/dashboard/video-management"`)
		assert.Contains(t, body, `<form method="post" action="/logout"`)
	})

	t.Run("users see the list without admin links", func(t *testing.T) {
		site, _ := newTestSite(t, user())

		rec := serve(site, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, "Ravi")
		assert.Contains(t, body, "Carnatic Basics")
		assert.NotContains(t, body, `href="/dashboard/courses/c1"`)
		assert.NotContains(t, body, `href="/dashboard/video-management"`)
	})

	t.Run("logged out visitors are sent to login", func(t *testing.T) {
		site, backend := newTestSite(t, nil)

		rec := serve(site, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login?error_code=unauthenticated", rec.Header().Get("Location"))
		assert.Empty(t, rec.Body.String())
		assert.Empty(t, backend.calls)
	})
}

func TestAdminRoutes(t *testing.T) {
	site, backend := newTestSite(t, user())

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/dashboard/video-management", nil),
		httptest.NewRequest(http.MethodGet, "/dashboard/courses/c1", nil),
		postForm("/dashboard/video-management/videos/v1/delete", url.Values{"courseId": {"c1"}}),
	} {
		rec := serve(site, req)
		assert.Equal(t, http.StatusFound, rec.Code, req.URL.Path)
		assert.Equal(t, "/login?error_code=forbidden", rec.Header().Get("Location"), req.URL.Path)
	}
	assert.Empty(t, backend.calls)
}

func TestVideoManagement(t *testing.T) {
	t.Run("load course videos", func(t *testing.T) {
		site, backend := newTestSite(t, admin())

		rec := serve(site, httptest.NewRequest(http.MethodGet, "/dashboard/video-management?course=c1&load=1", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, "Videos in Carnatic Basics")
		assert.Contains(t, body, "Sarali Varisai")
		assert.Contains(t, body, `action="/dashboard/video-management/videos/v2/delete"`)
		assert.True(t, backend.called("GET /api/videos/by-course/c1"))
	})

	t.Run("unknown course shows the backend message", func(t *testing.T) {
		site, _ := newTestSite(t, admin())

		rec := serve(site, httptest.NewRequest(http.MethodGet, "/dashboard/video-management?course=zz&load=1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "no such course")
	})

	t.Run("invalid course is not sent", func(t *testing.T) {
		site, backend := newTestSite(t, admin())

		rec := serve(site, postForm("/dashboard/video-management/courses", url.Values{"courseName": {"Veena"}}))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "Please fill in course name, details and price.")
		assert.Contains(t, rec.Body.String(), `value="Veena"`)
		assert.False(t, backend.called("POST /course/create-course"))
	})

	t.Run("created course redirects with a flash", func(t *testing.T) {
		site, backend := newTestSite(t, admin())

		rec := serve(site, postForm("/dashboard/video-management/courses", url.Values{
			"courseName": {"Veena"},
			"details":    {"Strings"},
			"price":      {"700"},
			"keywords":   {"veena, strings"},
		}))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/dashboard/video-management?course=c9&flash=course-created", rec.Header().Get("Location"))
		assert.True(t, backend.called("POST /course/create-course"))

		rec = serve(site, httptest.NewRequest(http.MethodGet, rec.Header().Get("Location"), nil))
		assert.Contains(t, rec.Body.String(), "Course created successfully with ID: c9")
	})

	t.Run("upload without a title is refused", func(t *testing.T) {
		site, backend := newTestSite(t, admin())

		rec := serve(site, postForm("/dashboard/video-management/videos", url.Values{"courseId": {"c1"}}))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.False(t, backend.called("POST /videos/upload/c1"))
	})

	t.Run("delete reloads the course", func(t *testing.T) {
		site, backend := newTestSite(t, admin())

		rec := serve(site, postForm("/dashboard/video-management/videos/v1/delete", url.Values{"courseId": {"c1"}}))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/dashboard/video-management?course=c1&flash=video-deleted&load=1", rec.Header().Get("Location"))
		assert.True(t, backend.called("DELETE /videos/delete/v1"))
	})
}

func TestCourseEdit(t *testing.T) {
	t.Run("form is prefilled", func(t *testing.T) {
		site, _ := newTestSite(t, admin())

		rec := serve(site, httptest.NewRequest(http.MethodGet, "/dashboard/courses/c1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `value="Carnatic Basics"`)
		assert.Contains(t, rec.Body.String(), `<output data-discount>25</output>`)
	})

	t.Run("update shows the success banner", func(t *testing.T) {
		site, backend := newTestSite(t, admin())

		rec := serve(site, postForm("/dashboard/courses/c1", url.Values{
			"courseName":    {"Carnatic Basics"},
			"details":       {"Start here"},
			"price":         {"800"},
			"originalPrice": {"1000"},
		}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Course updated successfully.")
		assert.Contains(t, rec.Body.String(), `<output data-discount>20</output>`)
		assert.True(t, backend.called("PUT /course/update-course/c1"))
	})
}

func TestCourseDetails(t *testing.T) {
	t.Run("first video is selected", func(t *testing.T) {
		site, _ := newTestSite(t, user())

		rec := serve(site, httptest.NewRequest(http.MethodGet, "/dashboard/course-details/c1", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, `src="https://cdn.example.com/v1.mp4"`)
		assert.Contains(t, body, `data-state="paused"`)
	})

	t.Run("end of a video advances to the next", func(t *testing.T) {
		site, _ := newTestSite(t, user())

		rec := serve(site, httptest.NewRequest(http.MethodGet, "/dashboard/course-details/c1?ended=v1", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, `src="https://cdn.example.com/v2.mp4"`)
		assert.Contains(t, body, `data-state="paused"`)
		assert.NotContains(t, body, "autoplay")
		assert.NotContains(t, body, "You have reached the end of this course.")
	})

	t.Run("end of the last video finishes the course", func(t *testing.T) {
		site, _ := newTestSite(t, user())

		rec := serve(site, httptest.NewRequest(http.MethodGet, "/dashboard/course-details/c1?ended=v2", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, `src="https://cdn.example.com/v2.mp4"`)
		assert.Contains(t, body, `data-state="ended"`)
		assert.Contains(t, body, "You have reached the end of this course.")
	})

	t.Run("unknown video falls back to the first", func(t *testing.T) {
		site, _ := newTestSite(t, user())

		rec := serve(site, httptest.NewRequest(http.MethodGet, "/dashboard/course-details/c1?video=nope", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "That video is not part of this course.")
		assert.Contains(t, rec.Body.String(), `src="https://cdn.example.com/v1.mp4"`)
	})

	t.Run("missing course", func(t *testing.T) {
		site, _ := newTestSite(t, user())

		rec := serve(site, httptest.NewRequest(http.MethodGet, "/dashboard/course-details/zz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Course not found for the provided ID.")
	})
}

func TestManagementURL(t *testing.T) {
	assert.Equal(t, "/dashboard/video-management", managementURL("", false, ""))
	assert.Equal(t, "/dashboard/video-management?course=c1&load=1", managementURL("c1", true, ""))
}
