// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them. Generic
// codes mirror HTTP status semantics, domain codes describe outcomes the
// status alone cannot convey (a denied quota and an exhausted catalog are
// both "no item for you", for very different reasons).
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "quota_exceeded",
//	  "message": "You have used all 10 recommendations. The limit renews in 3h 12m."
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeUnavailable      = "store_unavailable"

	// Domain-specific:
	ErrCodeQuotaExceeded        = "quota_exceeded"
	ErrCodeNoneFound            = "none_found"
	ErrCodeOnboardingIncomplete = "onboarding_incomplete"
	ErrCodeUnsupportedImage     = "unsupported_image"
	ErrCodeImageTooLarge        = "image_too_large"
)
