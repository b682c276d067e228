package main

import (
	"context"
	"fmt"

	"github.com/qoox/smartcsv/modules/content"
	"github.com/qoox/smartcsv/modules/content/services"
	"github.com/qoox/smartcsv/pkg/configuration"
	"github.com/qoox/smartcsv/pkg/serrors"
)

func loadModule(ctx context.Context) (*content.Module, error) {
	mod, err := content.Load(ctx, configuration.Use())
	if err != nil {
		return nil, withCode(exitDB, fmt.Errorf("load pipeline: %w", err))
	}
	return mod, nil
}

// serviceExit maps a pipeline error onto a CLI exit code by its code.
func serviceExit(err error) error {
	if err == nil {
		return nil
	}
	var base *serrors.BaseError
	if ok := as(err, &base); ok {
		switch base.Code {
		case services.CodeValidationError:
			return withCode(exitUsage, err)
		case services.CodeFormatError, services.CodeNoData:
			return withCode(exitValidation, err)
		case services.CodeIOError:
			return withCode(exitIO, err)
		}
	}
	return withCode(exitDB, err)
}
