package dataset

import (
	"fmt"
	"strings"
)

// Source identifies where a dataset came from.
type Source string

const (
	SourceKaggle Source = "kaggle"
	SourceUpload Source = "upload"
)

// Reference identifies a dataset and, once resolved, its local file.
type Reference struct {
	Source Source
	Owner  string
	Name   string
	Path   string // local path; empty until resolved
}

// Slug returns the owner/name form used by the remote API.
func (r Reference) Slug() string {
	if r.Owner == "" {
		return r.Name
	}
	return r.Owner + "/" + r.Name
}

// String implements fmt.Stringer.
func (r Reference) String() string {
	return string(r.Source) + ":" + r.Slug()
}

// ParseReference extracts the owner/name pair from a dataset link.
//
// Links must contain a "datasets" path segment; the owner and name are the
// last two segments of the path, so
//
//	https://www.kaggle.com/datasets/blastchar/telco-customer-churn
//
// yields blastchar/telco-customer-churn. A bare "owner/name" slug is also
// accepted. Everything else fails with ErrInvalidReference.
func ParseReference(link string) (Reference, error) {
	raw := strings.TrimSpace(link)
	if raw == "" {
		return Reference{}, fmt.Errorf("%w: empty link", ErrInvalidReference)
	}

	// Query strings and fragments are not part of the path.
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimRight(raw, "/")

	parts := strings.Split(raw, "/")

	if !strings.Contains(raw, "://") && len(parts) == 2 {
		if validSegment(parts[0]) && validSegment(parts[1]) && parts[0] != "datasets" {
			return Reference{Source: SourceKaggle, Owner: parts[0], Name: parts[1]}, nil
		}
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, link)
	}

	at := -1
	for i, p := range parts {
		if p == "datasets" {
			at = i
			break
		}
	}
	if at < 0 || len(parts)-at-1 < 2 {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, link)
	}

	owner, name := parts[len(parts)-2], parts[len(parts)-1]
	if !validSegment(owner) || !validSegment(name) {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, link)
	}
	return Reference{Source: SourceKaggle, Owner: owner, Name: name}, nil
}

// validSegment rejects empty, dot, and whitespace-bearing path segments.
func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, " \t\r\n\\:")
}
