package handler

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/appauth-server/internal/apierrors"
	"github.com/dtroode/appauth-server/internal/model"
)

func handleError(err error) error {
	if errors.Is(err, model.ErrNotFound) && !isAPIError(err) {
		return status.Error(codes.NotFound, "not found")
	}
	return apierrors.As(err).GRPCStatus().Err()
}

func isAPIError(err error) bool {
	var apiErr *apierrors.APIError
	return errors.As(err, &apiErr)
}
