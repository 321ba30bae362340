package flock

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownSpecies is matched by every *UnknownSpeciesError.
	ErrUnknownSpecies = errors.New("unknown species")
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("species config not found")
	// ErrInvalidCapacity is returned for a capacity below 1.
	ErrInvalidCapacity = errors.New("capacity must be at least 1")
	// ErrNoEvictionPolicy is returned by New when Options.Eviction was left unset.
	ErrNoEvictionPolicy = errors.New("an eviction policy must be chosen explicitly")
	// ErrNoSpecies is returned by weighted insertion on an empty species table.
	ErrNoSpecies = errors.New("no species registered")
)

// UnknownSpeciesError reports a bird referencing a species id absent from the table.
type UnknownSpeciesError struct {
	ID string
}

func (e *UnknownSpeciesError) Error() string {
	return fmt.Sprintf("unknown species %q", e.ID)
}

// Is lets errors.Is(err, ErrUnknownSpecies) match.
func (e *UnknownSpeciesError) Is(target error) bool {
	return target == ErrUnknownSpecies
}

// NotFoundError reports an update of a species id that was never added.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("species config %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
