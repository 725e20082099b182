package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrNoData means the provider returned no rows for the query.
	ErrNoData = fmt.Errorf("%w: no data returned", ErrNotFound)
	// ErrEmptyAfterCleaning means every row was dropped during normalization.
	ErrEmptyAfterCleaning = fmt.Errorf("%w: no valid rows after cleaning", ErrNotFound)

	ErrMissingParameter = errors.New("missing required parameter")
	ErrRateLimited      = errors.New("rate limited by provider")
)
