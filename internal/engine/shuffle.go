package engine

import (
	"fmt"

	"quiz-engine-service/internal/domain"
)

// Shuffle permutes items in place with Fisher-Yates, walking i from len-1 down to 0 and swapping
// with j = src.Next(0, i). Slices of length 0 or 1 are left untouched and draw nothing.
func Shuffle[T any](src Source, items []T) error {
	n := len(items)
	if n <= 1 {
		return nil
	}
	for i := n - 1; i >= 0; i-- {
		j, err := src.Next(0, i)
		if err != nil {
			return err
		}
		items[i], items[j] = items[j], items[i]
	}
	return nil
}

// Sample draws n distinct elements from pool without replacement. The pool is not modified.
// It runs a partial Fisher-Yates over a copy so the same Source drives selection and ordering.
func Sample[T any](src Source, pool []T, n int) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: sample size %d", domain.ErrInvalidCount, n)
	}
	if len(pool) < n {
		return nil, fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientQuestions, len(pool), n)
	}
	work := make([]T, len(pool))
	copy(work, pool)
	for i := 0; i < n; i++ {
		j, err := src.Next(i, len(work)-1)
		if err != nil {
			return nil, err
		}
		work[i], work[j] = work[j], work[i]
	}
	return work[:n:n], nil
}
