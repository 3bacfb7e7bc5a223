package storage

import "errors"

// ErrNotFound is returned when a requested resource does not exist
var ErrNotFound = errors.New("resource not found")

// ErrUnsafeName is returned when a file name tries to leave the record directory
var ErrUnsafeName = errors.New("unsafe file name")

// ErrNotRegular is returned when a path names a directory or device instead of a file
var ErrNotRegular = errors.New("not a regular file")
