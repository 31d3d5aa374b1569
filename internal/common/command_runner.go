package common

import (
	"context"
	"fmt"

	"resumatch/internal/errors"
)

// BuildInputFunc defines how to create the operation input from extracted
// file contents.
type BuildInputFunc[Input any] func(contents []string) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc is a generic signature for a pipeline operation.
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// RunFileCommand encapsulates the common logic for file-based CLI commands:
// validate and extract the input documents, run the operation, format and
// write the result.
func RunFileCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	maxFileSize int64,
	args []string,
	buildInput BuildInputFunc[Input],
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	fileProcessor := NewFileProcessor(logger)
	fileProcessor.MaxFileSize = maxFileSize
	outputHandler := NewOutputHandler(logger)

	for _, arg := range args {
		if err := ValidateDocumentFile(arg); err != nil {
			return errors.NewValidationError("INVALID_INPUT_FILE", err.Error(), err)
		}
	}

	contents, err := fileProcessor.ReadDocuments(args...)
	if err != nil {
		return err
	}

	input, err := buildInput(contents)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, err := operation(ctx, input)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
