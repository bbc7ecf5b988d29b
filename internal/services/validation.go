package services

import (
	"context"
	"strings"
)

// ValidateUniqueName reports a field-scoped error when a changed name is
// already taken. An unchanged name (case-insensitively equal to the
// original) is never a uniqueness violation.
func ValidateUniqueName(ctx context.Context, exists func(context.Context, string) (bool, error), field, name, originalName string) (map[string]string, error) {
	if strings.EqualFold(name, originalName) {
		return nil, nil
	}
	taken, err := exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return oneError(field, field+" already exists, make sure you provided a unique value."), nil
	}
	return nil, nil
}

// ValidateReference reports a field-scoped error when a non-nil foreign
// key that differs from the original does not resolve to an existing
// record.
func ValidateReference[K comparable](ctx context.Context, exists func(context.Context, K) (bool, error), field string, key, originalKey *K) (map[string]string, error) {
	if key == nil {
		return nil, nil
	}
	if originalKey != nil && *key == *originalKey {
		return nil, nil
	}
	found, err := exists(ctx, *key)
	if err != nil {
		return nil, err
	}
	if !found {
		return oneError(field, "There's no record found with the "+field+" provided."), nil
	}
	return nil, nil
}
