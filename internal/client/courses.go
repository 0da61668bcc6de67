package client

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/musickatta/katta-admin/internal/models"
)

// ListCourses returns every course.
func (c *Client) ListCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	err := c.do(ctx, call{
		op:       "list_courses",
		method:   http.MethodGet,
		path:     "/course/all-courses",
		fallback: "Failed to load courses",
	}, &courses)
	if err != nil {
		return nil, err
	}
	return courses, nil
}

// GetCourse returns a single course.
func (c *Client) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	if courseID == "" {
		return nil, &models.ValidationError{Message: "Please select a course.", Fields: []string{"courseId"}}
	}

	var course models.Course
	err := c.do(ctx, call{
		op:       "get_course",
		method:   http.MethodGet,
		path:     "/course/get-course/" + url.PathEscape(courseID),
		fallback: "Failed to fetch course details",
	}, &course)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// CreateCourse validates in and creates the course. With an image attached the form is
// sent as multipart to the image endpoint, otherwise as JSON.
func (c *Client) CreateCourse(ctx context.Context, in *models.CourseInput) (*models.Course, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	cl := call{
		op:       "create_course",
		method:   http.MethodPost,
		path:     "/course/create-course",
		fallback: "Failed to create course",
	}
	if err := courseBody(&cl, in); err != nil {
		return nil, err
	}
	if in.Image != nil {
		cl.path = "/course/create-course-with-image"
	}

	var course models.Course
	if err := c.do(ctx, cl, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// UpdateCourse validates in and replaces the course's editable fields.
func (c *Client) UpdateCourse(ctx context.Context, courseID string, in *models.CourseInput) (*models.Course, error) {
	if courseID == "" {
		return nil, &models.ValidationError{Message: "Please select a course.", Fields: []string{"courseId"}}
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	cl := call{
		op:       "update_course",
		method:   http.MethodPut,
		path:     "/course/update-course/" + url.PathEscape(courseID),
		fallback: "Failed to update course",
	}
	if err := courseBody(&cl, in); err != nil {
		return nil, err
	}

	var course models.Course
	if err := c.do(ctx, cl, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func courseBody(cl *call, in *models.CourseInput) error {
	if in.Image == nil {
		body, err := jsonBody(in)
		if err != nil {
			return err
		}
		cl.body, cl.contentType = body, "application/json"
		return nil
	}

	fields := [][2]string{
		{"courseName", in.CourseName},
		{"details", in.Details},
		{"price", in.Price},
	}
	optional := [][2]string{
		{"originalPrice", in.OriginalPrice},
		{"status", in.Status},
		{"courseDuration", in.CourseDuration},
	}
	for _, f := range optional {
		if f[1] != "" {
			fields = append(fields, f)
		}
	}
	for _, k := range in.Keywords {
		fields = append(fields, [2]string{"keywords", k})
	}

	image := in.Image
	var body io.ReadCloser
	body, cl.contentType = multipartBody(func(mw *multipart.Writer) error {
		if err := writeFields(mw, fields); err != nil {
			return err
		}
		return writeFile(mw, "image", image.Filename, image.Body)
	})
	cl.body = body
	return nil
}
