package fsnode

import (
	"fmt"
)

type ErrNotFound struct {
	name string
}

func NewErrNotFound(name string) *ErrNotFound {
	return &ErrNotFound{name: name}
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("no such file or directory: %s", e.name)
}

type ErrNotDirectory struct {
	name string
}

func NewErrNotDirectory(name string) *ErrNotDirectory {
	return &ErrNotDirectory{name: name}
}

func (e *ErrNotDirectory) Error() string {
	return fmt.Sprintf("not a directory: %s", e.name)
}

type ErrInvalidName struct {
	name string
}

func NewErrInvalidName(name string) *ErrInvalidName {
	return &ErrInvalidName{name: name}
}

func (e *ErrInvalidName) Error() string {
	return fmt.Sprintf("invalid name: %q", e.name)
}

type ErrNotEmpty struct {
	name string
}

func NewErrNotEmpty(name string) *ErrNotEmpty {
	return &ErrNotEmpty{name: name}
}

func (e *ErrNotEmpty) Error() string {
	return fmt.Sprintf("directory not empty: %s", e.name)
}

type ErrExists struct {
	name string
}

func NewErrExists(name string) *ErrExists {
	return &ErrExists{name: name}
}

func (e *ErrExists) Error() string {
	return fmt.Sprintf("already exists: %s", e.name)
}
