package manager

import (
	"errors"

	"solverd/internal/bundle"
	"solverd/internal/catalog"
	"solverd/internal/engine"
	"solverd/internal/layout"
	"solverd/internal/registry"
	"solverd/internal/strategy"
)

// projectNotFoundError is returned when a project is not registered or is
// on its way out.
type projectNotFoundError struct{ name string }

func (e projectNotFoundError) Error() string { return "project not found: " + e.name }

// ErrProjectNotFound constructs a projectNotFoundError.
func ErrProjectNotFound(name string) error { return projectNotFoundError{name: name} }

// IsProjectNotFound reports whether err indicates a missing project (404).
func IsProjectNotFound(err error) bool {
	var e projectNotFoundError
	return errors.As(err, &e) || errors.Is(err, catalog.ErrNotFound) || errors.Is(err, registry.ErrNotFound)
}

// closedError signals use after Close.
type closedError struct{}

func (closedError) Error() string { return "manager closed" }

// IsClosed reports whether err was caused by a closed manager.
func IsClosed(err error) bool {
	var e closedError
	return errors.As(err, &e)
}

// IsConflict reports an import of a name that is already registered (409).
func IsConflict(err error) bool { return errors.Is(err, registry.ErrConflict) }

// IsExpired reports a bundle whose deadline has passed (410).
func IsExpired(err error) bool { return errors.Is(err, bundle.ErrExpired) }

// IsInvalidPackage reports an undecodable bundle (400).
func IsInvalidPackage(err error) bool { return errors.Is(err, bundle.ErrInvalidPackage) }

// IsInvalidName reports a project or model name that cannot name a
// directory (400).
func IsInvalidName(err error) bool { return errors.Is(err, layout.ErrInvalidName) }

// IsNotExportable reports a project with no source tree to export (409).
func IsNotExportable(err error) bool { return errors.Is(err, bundle.ErrNotExportable) }

// IsUntrusted reports strategy source that was refused (403).
func IsUntrusted(err error) bool {
	return errors.Is(err, strategy.ErrUntrustedExtension) || errors.Is(err, strategy.ErrUnknownStrategy)
}

// IsDependencyUnavailable reports a missing inference runtime (503).
func IsDependencyUnavailable(err error) bool { return errors.Is(err, engine.ErrDependencyUnavailable) }
