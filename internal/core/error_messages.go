package core

// # Error Codes Reference
//
// Every error a user can trigger maps to a short code they can quote when
// asking for help. Codes are grouped by the stage that failed:
//
//	REF001   - Dataset link not recognised
//	AUTH001  - Remote source rejected the credentials
//	NET001   - Remote source unreachable or returned an error
//	NET002   - Remote request timed out
//	ARC001   - No archive to extract
//	ARC002   - Archive is damaged or contains unsafe paths
//	FILE001  - Selected file no longer exists
//	FILE002  - Upload exceeds the size limit
//	FILE003  - No file was provided
//	FILE004  - Unsupported text encoding
//	PARSE001 - File could not be parsed as CSV
//	DS001    - No dataset loaded
//	DS002    - No file selected
//	COL001   - Column not found
//	COL002   - Filter value not present
//	BUSY001  - Too many downloads in progress
//	RATE001  - Too many requests
//	REQ001   - Request cancelled
//	ERR000   - Anything else; check the server log
//
// MapError first walks sentinelMessages with errors.Is, then falls back to
// case-insensitive substring patterns for errors that arrive as text (for
// example from the standard library or a driver).

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/datadash/internal/dataset"
	"github.com/JonMunkholm/datadash/internal/staging"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // what happened
	Action  string `json:"action"`  // what to do about it
	Code    string `json:"code"`    // support reference
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

// sentinelMessages is checked in order; the first errors.Is match wins.
var sentinelMessages = []sentinelMessage{
	{dataset.ErrInvalidReference, UserMessage{
		Message: "That does not look like a dataset link",
		Action:  "Paste a link of the form https://www.kaggle.com/datasets/<owner>/<name>",
		Code:    "REF001",
	}},
	{dataset.ErrAuthentication, UserMessage{
		Message: "The dataset service rejected the credentials",
		Action:  "Place a valid kaggle.json in ~/.kaggle or set KAGGLE_USERNAME and KAGGLE_KEY",
		Code:    "AUTH001",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "The request timed out",
		Action:  "Try again later or choose a smaller dataset",
		Code:    "NET002",
	}},
	{dataset.ErrRemote, UserMessage{
		Message: "Could not download the dataset",
		Action:  "Check the link and your connection, then try again",
		Code:    "NET001",
	}},
	{dataset.ErrNoArchive, UserMessage{
		Message: "No downloaded archive was found to extract",
		Action:  "Download the dataset again",
		Code:    "ARC001",
	}},
	{staging.ErrUnsafePath, UserMessage{
		Message: "The archive contains files outside the data folder",
		Action:  "The archive was kept for inspection; do not use this dataset",
		Code:    "ARC002",
	}},
	{dataset.ErrFileNotFound, UserMessage{
		Message: "The selected file no longer exists",
		Action:  "Pick another file or download the dataset again",
		Code:    "FILE001",
	}},
	{ErrFileTooLarge, UserMessage{
		Message: "The file exceeds the upload size limit",
		Action:  "Upload a smaller file",
		Code:    "FILE002",
	}},
	{ErrNoFile, UserMessage{
		Message: "No file was provided",
		Action:  "Choose a CSV file to upload",
		Code:    "FILE003",
	}},
	{dataset.ErrParse, UserMessage{
		Message: "The file could not be read as CSV",
		Action:  "Make sure the file is comma-separated text with a header row",
		Code:    "PARSE001",
	}},
	{dataset.ErrNoDataset, UserMessage{
		Message: "No dataset is loaded",
		Action:  "Download, upload or load a dataset first",
		Code:    "DS001",
	}},
	{dataset.ErrNoSelection, UserMessage{
		Message: "No file is selected",
		Action:  "Select a file from the data folder, then load it",
		Code:    "DS002",
	}},
	{dataset.ErrColumnNotFound, UserMessage{
		Message: "That column does not exist in the dataset",
		Action:  "Pick a column from the list",
		Code:    "COL001",
	}},
	{dataset.ErrValueNotFound, UserMessage{
		Message: "No rows have that value",
		Action:  "Pick a value from the list",
		Code:    "COL002",
	}},
	{ErrTooManyDownloads, UserMessage{
		Message: "Too many downloads are in progress",
		Action:  "Please wait a moment and try again",
		Code:    "BUSY001",
	}},
	{context.Canceled, UserMessage{
		Message: "The request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors that carry no sentinel. Patterns are matched
// lowercase with strings.Contains; the first match wins.
var errorPatterns = []errorPattern{
	{"unsupported encoding", UserMessage{
		Message: "The selected text encoding is not supported",
		Action:  "Use UTF-8 or a standard encoding name such as windows-1252",
		Code:    "FILE004",
	}},
	{"not a valid zip file", UserMessage{
		Message: "The downloaded archive is damaged",
		Action:  "Download the dataset again",
		Code:    "ARC002",
	}},
	{"request body too large", UserMessage{
		Message: "The file exceeds the upload size limit",
		Action:  "Upload a smaller file",
		Code:    "FILE002",
	}},
	{"timeout", UserMessage{
		Message: "The request timed out",
		Action:  "Try again later or choose a smaller dataset",
		Code:    "NET002",
	}},
	{"connection refused", UserMessage{
		Message: "Could not reach the dataset service",
		Action:  "Check your connection, then try again",
		Code:    "NET001",
	}},
	{"no such host", UserMessage{
		Message: "Could not reach the dataset service",
		Action:  "Check your connection, then try again",
		Code:    "NET001",
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

// defaultMessage is returned when nothing matches (ERR000). The technical
// error is in the server log.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the server log",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(fmt.Errorf("load: %w", dataset.ErrParse))
//	// msg.Code == "PARSE001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}
	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error (for logs) with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. It returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
