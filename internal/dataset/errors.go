// Package dataset defines the shared vocabulary of the dashboard: dataset
// references and the error taxonomy every acquisition and view operation
// reports through.
package dataset

import "errors"

// Sentinel errors. Callers wrap them with context using %w and match with
// errors.Is; core.MapError turns them into user-facing messages.
var (
	// ErrInvalidReference is returned when a link or slug does not name a dataset.
	ErrInvalidReference = errors.New("invalid dataset reference")

	// ErrAuthentication is returned when the remote source rejects the credentials.
	ErrAuthentication = errors.New("authentication failed")

	// ErrRemote covers transport failures and unexpected remote responses.
	ErrRemote = errors.New("remote source error")

	// ErrNoArchive is returned when the staging directory holds no archive to unpack.
	ErrNoArchive = errors.New("no archive found")

	// ErrFileNotFound is returned when a selected staging file no longer exists.
	ErrFileNotFound = errors.New("dataset file not found")

	// ErrParse is returned when content cannot be read as delimited tabular data.
	ErrParse = errors.New("cannot parse tabular data")

	// ErrNoDataset is returned by view operations when the session has no active table.
	ErrNoDataset = errors.New("no dataset loaded")

	// ErrNoSelection is returned when a load is requested before a file was selected.
	ErrNoSelection = errors.New("no dataset file selected")

	// ErrColumnNotFound is returned when a requested column is not in the table.
	ErrColumnNotFound = errors.New("column not found")

	// ErrValueNotFound means a filter value matched no row.
	ErrValueNotFound = errors.New("value not found in column")
)
