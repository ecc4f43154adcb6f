// Package services defines the business logic for translation sync, locking,
// commits, and merges. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages should be performed by whatever
// surface drives these services.
package services

import "errors"

var (
	// ErrTranslationNotFound indicates that the requested translation does
	// not exist.
	ErrTranslationNotFound = errors.New("translation not found")

	// ErrUnitNotFound indicates that a unit is missing from the index or
	// could not be located in the backing file.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrSuggestionNotFound indicates that the requested suggestion does
	// not exist, typically because a sync pass already cleaned it up.
	ErrSuggestionNotFound = errors.New("suggestion not found")

	// ErrUnparsableFile is returned when no registered format adapter can
	// parse a file or upload. Surfaced before any mutation is attempted.
	ErrUnparsableFile = errors.New("file cannot be parsed by any known format")

	// ErrFileMissing is returned when a translation's backing file does not
	// exist on disk.
	ErrFileMissing = errors.New("translation file missing from repository")

	// ErrComponentLocked is returned when an interactive edit is attempted
	// against a component whose maintainer has locked it.
	ErrComponentLocked = errors.New("component is locked")

	// ErrLocked is returned when an interactive edit is attempted against a
	// translation soft-locked by another actor.
	ErrLocked = errors.New("translation is locked by another user")
)
