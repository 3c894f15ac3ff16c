package patients

import "errors"

var (
	ErrNotFound    = errors.New("patient not found")
	ErrForbidden   = errors.New("patient belongs to another user")
	ErrMainProfile = errors.New("main profile cannot be renamed or deleted")
	ErrNameTaken   = errors.New("a profile with this name already exists")
)
