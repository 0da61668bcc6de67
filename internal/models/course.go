package models

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
)

// Course status values accepted by the course service.
const (
	CourseStatusActive   = "active"
	CourseStatusInactive = "inactive"
)

// ID is an identifier issued by the backend. The services are inconsistent about
// sending ids as JSON strings or numbers, so both decode into the same string form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	s, err := looseString(data)
	if err != nil {
		return err
	}
	*id = ID(s)
	return nil
}

func (id ID) String() string { return string(id) }

// Amount is a price as sent by the course service, either a JSON string or number.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	s, err := looseString(data)
	if err != nil {
		return err
	}
	*a = Amount(s)
	return nil
}

// Float parses the amount. ok is false for empty or non-numeric amounts.
func (a Amount) Float() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(a)), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func looseString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// Course is a course as returned by the course service.
type Course struct {
	CourseID           ID       `json:"courseId"`
	CourseName         string   `json:"courseName"`
	Details            string   `json:"details"`
	Price              Amount   `json:"price"`
	OriginalPrice      Amount   `json:"originalPrice,omitempty"`
	DiscountPercentage Amount   `json:"discountPercentage,omitempty"`
	Status             string   `json:"status,omitempty"`
	CourseDuration     string   `json:"courseDuration,omitempty"`
	Keywords           []string `json:"keywords,omitempty"`
	ImageURL           string   `json:"imageUrl,omitempty"`
	PostDate           string   `json:"postDate,omitempty"`
	PostTime           string   `json:"postTime,omitempty"`
}

// Discount returns the discount percentage shown for the course. A value sent by the
// backend wins; otherwise it is derived from the original and current price.
func (c Course) Discount() int {
	if v, ok := c.DiscountPercentage.Float(); ok {
		return int(math.Round(v))
	}
	original, ok := c.OriginalPrice.Float()
	if !ok {
		return 0
	}
	price, ok := c.Price.Float()
	if !ok {
		return 0
	}
	return DiscountPercent(original, price)
}

// CreatedAt joins the backend's separate date and time fields for display.
func (c Course) CreatedAt() string {
	return strings.TrimSpace(c.PostDate + " " + c.PostTime)
}

// DiscountPercent returns round((original-price)/original*100). It is 0 when there is
// no meaningful original price.
func DiscountPercent(original, price float64) int {
	if original <= 0 || price >= original {
		return 0
	}
	return int(math.Round((original - price) / original * 100))
}

// Attachment is a file to be sent as a multipart part.
type Attachment struct {
	Filename string
	Body     io.Reader
}

// CourseInput is the payload of the create and update course forms.
type CourseInput struct {
	CourseName     string      `json:"courseName" yaml:"courseName" validate:"required"`
	Details        string      `json:"details" yaml:"details" validate:"required"`
	Price          string      `json:"price" yaml:"price" validate:"required,numeric"`
	OriginalPrice  string      `json:"originalPrice,omitempty" yaml:"originalPrice" validate:"omitempty,numeric"`
	Status         string      `json:"status,omitempty" yaml:"status" validate:"omitempty,oneof=active inactive"`
	CourseDuration string      `json:"courseDuration,omitempty" yaml:"courseDuration"`
	Keywords       []string    `json:"keywords,omitempty" yaml:"keywords"`
	Image          *Attachment `json:"-" yaml:"-"`
}

// Normalize trims whitespace from every text field and drops empty keywords.
func (in *CourseInput) Normalize() {
	in.CourseName = strings.TrimSpace(in.CourseName)
	in.Details = strings.TrimSpace(in.Details)
	in.Price = strings.TrimSpace(in.Price)
	in.OriginalPrice = strings.TrimSpace(in.OriginalPrice)
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	in.CourseDuration = strings.TrimSpace(in.CourseDuration)

	keywords := in.Keywords[:0]
	for _, k := range in.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	in.Keywords = keywords
}

// Validate normalizes the input and checks required fields before anything is sent.
func (in *CourseInput) Validate() error {
	in.Normalize()
	if in.CourseName == "" || in.Details == "" || in.Price == "" {
		return &ValidationError{Message: "Please fill in course name, details and price."}
	}
	return validateStruct(in)
}

// DiscountPreview is the discount implied by the form's original price and price.
func (in CourseInput) DiscountPreview() int {
	original, ok := Amount(in.OriginalPrice).Float()
	if !ok {
		return 0
	}
	price, ok := Amount(in.Price).Float()
	if !ok {
		return 0
	}
	return DiscountPercent(original, price)
}

// InputFromCourse prefills an edit form from a loaded course.
func InputFromCourse(c Course) CourseInput {
	return CourseInput{
		CourseName:     c.CourseName,
		Details:        c.Details,
		Price:          string(c.Price),
		OriginalPrice:  string(c.OriginalPrice),
		Status:         c.Status,
		CourseDuration: c.CourseDuration,
		Keywords:       append([]string(nil), c.Keywords...),
	}
}
