package client

import (
	"errors"

	"github.com/musickatta/katta-admin/internal/models"
)

// ErrTransport matches failures where no HTTP response was received.
var ErrTransport = errors.New("backend unreachable")

// APIError is a non-2xx response. Message is the response body text, or the
// operation's fallback message when the body is empty.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

// BannerKind classifies a banner.
type BannerKind string

const (
	BannerSuccess BannerKind = "success"
	BannerError   BannerKind = "error"
)

// Banner is the dismissable inline message shown after an action.
type Banner struct {
	Kind BannerKind
	Text string
}

// IsError reports whether the banner reports a failure.
func (b Banner) IsError() bool { return b.Kind == BannerError }

// SuccessBanner builds a success banner.
func SuccessBanner(text string) *Banner {
	return &Banner{Kind: BannerSuccess, Text: text}
}

// ErrorBanner maps err to the text shown to the user. Backend and validation
// messages are shown verbatim; transport failures get a generic text.
func ErrorBanner(err error) *Banner {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &apiErr):
		return &Banner{Kind: BannerError, Text: apiErr.Message}
	case errors.As(err, &validationErr):
		return &Banner{Kind: BannerError, Text: validationErr.Message}
	case errors.Is(err, ErrTransport):
		return &Banner{Kind: BannerError, Text: "Could not reach the server. Please try again."}
	default:
		return &Banner{Kind: BannerError, Text: err.Error()}
	}
}
