package binder

import "errors"

var (
	ErrBinderNotApplicable  = errors.New("binder not applicable to this request")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrMissingContentType   = errors.New("missing content type")
	ErrFailedToParseJSON    = errors.New("failed to parse JSON body")
	ErrBodyTooLarge         = errors.New("request body too large")
	ErrInvalidPath          = errors.New("invalid path parameter")
)
