package backend

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/infrastructure/resilience"
)

// Translate maps a transport failure onto a domain error kind. unavailable is the
// kind reported for network, auth, server and open-circuit failures.
func Translate(unavailable error, operation string, err error) error {
	if err == nil {
		return nil
	}
	if alreadyTranslated(err) {
		return err
	}
	return domain.WrapError(kindOf(unavailable, err), operation, err)
}

func kindOf(unavailable error, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return unavailable
	}
	if resilience.IsCircuitOpen(err) {
		return unavailable
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests:
			return domain.ErrRateLimited
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return domain.ErrTimeout
		case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
			return domain.ErrInvalidInput
		default:
			return unavailable
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ErrTimeout
	}
	return unavailable
}

func alreadyTranslated(err error) bool {
	for _, kind := range []error{
		domain.ErrTimeout,
		domain.ErrRateLimited,
		domain.ErrInvalidInput,
		domain.ErrDimensionMismatch,
		domain.ErrEmbeddingBackendUnavailable,
		domain.ErrLLMBackendUnavailable,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Classify decides which failures the resilience executor may retry and which
// count against the circuit breaker.
func Classify(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{
				Retryable:     true,
				RecordFailure: true,
			}
		}
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
