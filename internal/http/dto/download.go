package dto

import (
	"net/url"
	"regexp"
	"strings"
)

var formatIDRe = regexp.MustCompile(`^[A-Za-z0-9+\-\[\]/=.*()' ]+$`)

// DownloadRequest is the body of a download call.
type DownloadRequest struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id,omitempty"`
}

func (r *DownloadRequest) Validate() []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(r.URL) == "" {
		errs = append(errs, ValidationError{Field: "url", Message: "url is required"})
	} else {
		u, err := url.ParseRequestURI(r.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, ValidationError{Field: "url", Message: "must be a valid http(s) URL"})
		}
	}

	if r.FormatID != "" && !formatIDRe.MatchString(r.FormatID) {
		errs = append(errs, ValidationError{Field: "format_id", Message: "contains invalid characters"})
	}

	return errs
}

// KeyRequest is the body of an API key creation call.
type KeyRequest struct {
	Name string `json:"name"`
}

func (r *KeyRequest) Validate() []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "name is required"})
	}
	return errs
}
