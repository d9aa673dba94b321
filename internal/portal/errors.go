package portal

import "errors"

var (
	ErrCourseNotFound      = errors.New("course not found")
	ErrLessonNotFound      = errors.New("lesson not available")
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrNotPassed           = errors.New("quiz not passed")
)
