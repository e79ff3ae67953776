package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/JonMunkholm/datadash/internal/core"
	"github.com/JonMunkholm/datadash/internal/dataset"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a") {
		t.Error("third request in the window should be rejected")
	}
	if !rl.allow("b") {
		t.Error("other clients have their own budget")
	}

	now = now.Add(61 * time.Second)
	if !rl.allow("a") {
		t.Error("budget should reset after the window")
	}
	rl.stop()
	rl.stop()
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", dataset.ErrInvalidReference), http.StatusBadRequest},
		{dataset.ErrNoSelection, http.StatusBadRequest},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{dataset.ErrParse, http.StatusUnprocessableEntity},
		{dataset.ErrFileNotFound, http.StatusNotFound},
		{dataset.ErrColumnNotFound, http.StatusNotFound},
		{dataset.ErrNoDataset, http.StatusConflict},
		{dataset.ErrAuthentication, http.StatusBadGateway},
		{core.ErrTooManyDownloads, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestIntParam(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 10}, {"abc", 10}, {"0", 10}, {"-3", 10}, {"25", 25}, {"5000", 1000},
	}
	for _, tt := range tests {
		if got := intParam(tt.in, 10, 1000); got != tt.want {
			t.Errorf("intParam(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
