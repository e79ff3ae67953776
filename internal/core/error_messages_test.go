package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/datadash/internal/dataset"
	"github.com/JonMunkholm/datadash/internal/kaggle"
	"github.com/JonMunkholm/datadash/internal/staging"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"invalid reference", fmt.Errorf("parse %q: %w", "x", dataset.ErrInvalidReference), "REF001"},
		{"authentication via status error", &kaggle.StatusError{StatusCode: 401, Slug: "o/n"}, "AUTH001"},
		{"not found via status error", &kaggle.StatusError{StatusCode: 404, Slug: "o/n"}, "NET001"},
		{"deadline wrapped", fmt.Errorf("download: %w", context.DeadlineExceeded), "NET002"},
		{"no archive", fmt.Errorf("%w in data", dataset.ErrNoArchive), "ARC001"},
		{"unsafe archive", fmt.Errorf("%w: ../x", staging.ErrUnsafePath), "ARC002"},
		{"corrupt archive text", errors.New("open archive a.zip: zip: not a valid zip file"), "ARC002"},
		{"file vanished", fmt.Errorf("%w: a.csv", dataset.ErrFileNotFound), "FILE001"},
		{"file too large", ErrFileTooLarge, "FILE002"},
		{"no file", ErrNoFile, "FILE003"},
		{"bad encoding", errors.New("unsupported encoding \"x\""), "FILE004"},
		{"parse", fmt.Errorf("%w: bad quote", dataset.ErrParse), "PARSE001"},
		{"no dataset", dataset.ErrNoDataset, "DS001"},
		{"no selection", dataset.ErrNoSelection, "DS002"},
		{"column", fmt.Errorf("%w: \"x\"", dataset.ErrColumnNotFound), "COL001"},
		{"value", dataset.ErrValueNotFound, "COL002"},
		{"busy", ErrTooManyDownloads, "BUSY001"},
		{"cancelled", context.Canceled, "REQ001"},
		{"connection refused text", errors.New("dial tcp: Connection Refused"), "NET001"},
		{"rate limit text", errors.New("rate limit exceeded"), "RATE001"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() returned an empty message")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(dataset.ErrNoDataset)
	want := "No dataset is loaded (Code: DS001). Download, upload or load a dataset first"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", dataset.ErrParse, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("load a.csv: %w", dataset.ErrFileNotFound)
		userErr := NewUserError(techErr)

		if userErr.Error() != "The selected file no longer exists" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, dataset.ErrFileNotFound) {
			t.Error("Unwrap() should expose the original error chain")
		}
	})
}
