package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrMalformedPayload    = errors.New("malformed payload")
	ErrUnrecognizedPayload = errors.New("unrecognized payload")
	ErrMissingEnvelopeID   = errors.New("missing envelope id")
	ErrUnknownEnvelope     = errors.New("unknown envelope")
	ErrConsentRequired     = errors.New("consent required")
	ErrTransport           = errors.New("transport error")
	ErrAuth                = errors.New("auth error")
)
