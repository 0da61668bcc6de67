package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountPercent(t *testing.T) {
	tests := []struct {
		name     string
		original float64
		price    float64
		expected int
	}{
		{name: "twenty percent", original: 1000, price: 800, expected: 20},
		{name: "rounds half up", original: 8, price: 7, expected: 13},
		{name: "rounds down", original: 3, price: 2, expected: 33},
		{name: "no original price", original: 0, price: 800, expected: 0},
		{name: "price above original", original: 500, price: 800, expected: 0},
		{name: "free course", original: 499, price: 0, expected: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DiscountPercent(tt.original, tt.price))
		})
	}
}

func TestCourse_decodesLooseTypes(t *testing.T) {
	body := `{"courseId": 42, "courseName": "Tabla Basics", "details": "Intro", "price": 800,
		"originalPrice": "1000", "postDate": "2024-05-01", "postTime": "10:30"}`

	var c Course
	require.NoError(t, json.Unmarshal([]byte(body), &c))
	assert.Equal(t, ID("42"), c.CourseID)
	assert.Equal(t, Amount("800"), c.Price)
	assert.Equal(t, 20, c.Discount())
	assert.Equal(t, "2024-05-01 10:30", c.CreatedAt())
}

func TestCourse_discountFromBackendWins(t *testing.T) {
	c := Course{Price: "800", OriginalPrice: "1000", DiscountPercentage: "25"}
	assert.Equal(t, 25, c.Discount())
}

func TestCourseInput_Validate(t *testing.T) {
	t.Run("missing required fields", func(t *testing.T) {
		for _, in := range []CourseInput{
			{Details: "d", Price: "10"},
			{CourseName: "n", Price: "10"},
			{CourseName: "n", Details: "d"},
			{CourseName: "  ", Details: "d", Price: "10"},
		} {
			err := in.Validate()
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, "Please fill in course name, details and price.", err.Error())
		}
	})

	t.Run("rejects bad status", func(t *testing.T) {
		in := CourseInput{CourseName: "n", Details: "d", Price: "10", Status: "archived"}
		err := in.Validate()
		require.ErrorIs(t, err, ErrValidation)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"Status"}, verr.Fields)
	})

	t.Run("rejects non numeric price", func(t *testing.T) {
		in := CourseInput{CourseName: "n", Details: "d", Price: "ten"}
		require.ErrorIs(t, in.Validate(), ErrValidation)
	})

	t.Run("normalizes accepted input", func(t *testing.T) {
		in := CourseInput{
			CourseName: " Sitar ",
			Details:    "Ragas",
			Price:      "800",
			Status:     "Active",
			Keywords:   []string{"sitar", " ", "raga "},
		}
		require.NoError(t, in.Validate())
		assert.Equal(t, "Sitar", in.CourseName)
		assert.Equal(t, CourseStatusActive, in.Status)
		assert.Equal(t, []string{"sitar", "raga"}, in.Keywords)
	})
}

func TestCourseInput_DiscountPreview(t *testing.T) {
	in := CourseInput{Price: "800", OriginalPrice: "1000"}
	assert.Equal(t, 20, in.DiscountPreview())

	in.OriginalPrice = ""
	assert.Equal(t, 0, in.DiscountPreview())
}

func TestVideoInput_Validate(t *testing.T) {
	in := VideoInput{Title: "Lesson 1"}
	err := in.Validate()
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Please fill in video title and select a video file.", err.Error())

	in.File = &Attachment{Filename: "lesson1.mp4", Body: strings.NewReader("data")}
	require.NoError(t, in.Validate())
}

func TestCourseWithVideos_playlistOrder(t *testing.T) {
	body := `{"courseId": "c1", "courseName": "Guitar", "vedios": [
		{"videoId": "v2", "title": "Second"}, {"videoId": "v1", "title": "First"}]}`

	var c CourseWithVideos
	require.NoError(t, json.Unmarshal([]byte(body), &c))
	require.Len(t, c.Videos, 2)
	assert.Equal(t, ID("v2"), c.Videos[0].VideoID)
	assert.Equal(t, "Guitar", c.CourseName)
}
