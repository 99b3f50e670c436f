package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation (SQL, Firestore)
// from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a create collides with an existing record,
// such as a second rating by the same user for the same pizza.
var ErrDuplicate = errors.New("record already exists")
