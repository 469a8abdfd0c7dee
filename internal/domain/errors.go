package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed request body or parameter.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmptyQuery signals a blank user query.
	ErrEmptyQuery = errors.New("query must not be empty")
	// ErrQueryTooLong signals a user query over the accepted length.
	ErrQueryTooLong = errors.New("query is too long")
	// ErrSessionNotFound signals an unknown or expired conversation session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrRetrievalUnavailable signals that the vector index or the embedder cannot serve a search.
	// Callers recover from it by falling back to a broader search or an apology context.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")

	// ErrClassificationFailed signals an empty or unrecognized intent label. Fatal for the request.
	ErrClassificationFailed = errors.New("intent classification failed")
	// ErrGenerationFailed signals a failure of the text generation service.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrReviewsUnavailable signals that the reviews store is not configured or unreachable.
	ErrReviewsUnavailable = errors.New("reviews store unavailable")
	// ErrSummaryUnavailable signals that the model did not return a usable review summary.
	ErrSummaryUnavailable = errors.New("review summary unavailable")
)
