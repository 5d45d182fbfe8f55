package domain

import "errors"

var ErrSlugTaken = errors.New("slug already taken")
