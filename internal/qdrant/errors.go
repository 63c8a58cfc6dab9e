package qdrant

import (
	"context"
	stderrors "errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/screenlab/screensim/internal/pkg/errors"
)

// mapError converts a gRPC failure into an application error so callers
// can tell an unreachable or slow server from a bad request.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.CodeTimeout, op+" timed out", err)
	}

	st, ok := status.FromError(err)
	if !ok {
		return errors.QdrantError(op+" failed", err)
	}

	switch st.Code() {
	case codes.Unavailable, codes.Aborted, codes.ResourceExhausted:
		return errors.Wrap(errors.CodeUnavailable, op+": qdrant unavailable", err)
	case codes.DeadlineExceeded, codes.Canceled:
		return errors.Wrap(errors.CodeTimeout, op+" timed out", err)
	case codes.NotFound:
		return errors.Wrap(errors.CodeNotFound, op+": not found", err)
	case codes.InvalidArgument, codes.FailedPrecondition:
		return errors.Wrap(errors.CodeValidation, op+": rejected", err)
	default:
		return errors.QdrantError(op+" failed", err)
	}
}
