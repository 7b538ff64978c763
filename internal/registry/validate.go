package registry

import (
	"errors"

	"github.com/roach88/nsreg/internal/ident"
)

var (
	errEmptyIdentifier   = errors.New("identifier is empty")
	errWildcardNamespace = errors.New("wildcard names no single namespace")
)

func validate(id, sep string, allowRoot bool) error {
	if id == "" && !allowRoot {
		return newInvalidIdentifierError(id, errEmptyIdentifier)
	}
	if err := ident.Validate(id, sep); err != nil {
		return newInvalidIdentifierError(id, err)
	}
	return nil
}
