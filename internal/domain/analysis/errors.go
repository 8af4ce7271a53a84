package analysis

import "errors"

var ErrJobNotFound = errors.New("analysis job not found")
