// Package convert drives the external format-preserving converter.
// The converter receives the original resume file plus a JSON edit
// payload on stdin and writes a rewritten file in the same format.
// Everything it prints is diagnostics, read under a byte ceiling; the
// call carries a deadline enforced here, not by the tool.
package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"resumatch/internal/config"
	apperrors "resumatch/internal/errors"
	"resumatch/internal/extract"
	"resumatch/internal/types"
)

// maxDiagnosticBytes bounds captured converter stdout/stderr.
const maxDiagnosticBytes = 64 * 1024

// Request is one conversion: the original file and the edits to bake
// into it.
type Request struct {
	Filename      string
	OriginalFile  []byte
	LineEdits     []types.AppliedEdit
	InsertedLines []types.InsertedLine
	Aggressive    bool
}

// payload is the JSON contract written to the converter's stdin.
type payload struct {
	Kind          string               `json:"kind"`
	LineEdits     []types.AppliedEdit  `json:"lineEdits"`
	InsertedLines []types.InsertedLine `json:"insertedLines"`
	Aggressive    bool                 `json:"aggressive"`
}

// Response is the converted file plus the re-extracted text for
// verification.
type Response struct {
	File          []byte `json:"-"`
	ExtractedText string `json:"extractedText"`
	Diagnostics   string `json:"diagnostics,omitempty"`
}

// Converter shells out to the configured conversion command.
type Converter struct {
	cfg    config.ConverterConfig
	logger *apperrors.Logger
}

// New creates a converter. A converter with an empty command is valid
// but disabled.
func New(cfg config.ConverterConfig, logger *apperrors.Logger) *Converter {
	return &Converter{cfg: cfg, logger: logger}
}

// Enabled reports whether a conversion command is configured.
func (c *Converter) Enabled() bool {
	return c.cfg.Command != ""
}

// Convert runs the external tool: input and output paths are appended
// to the configured arguments, the edit payload goes to stdin, and the
// rewritten file is read back under the configured size ceiling.
func (c *Converter) Convert(ctx context.Context, req Request) (Response, error) {
	if !c.Enabled() {
		return Response{}, apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig,
			"Document converter is not configured", nil)
	}
	kind := extract.KindForFilename(req.Filename)
	if kind == "" {
		return Response{}, apperrors.NewValidationError(apperrors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("Unsupported file format for conversion: %s", filepath.Ext(req.Filename)), nil)
	}

	workDir, err := os.MkdirTemp("", "resumatch-convert-")
	if err != nil {
		return Response{}, apperrors.NewIOError(apperrors.ErrCodeConversionFailed,
			"Failed to create conversion workspace", err)
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "input"+filepath.Ext(req.Filename))
	outputPath := filepath.Join(workDir, "output"+filepath.Ext(req.Filename))
	if err := os.WriteFile(inputPath, req.OriginalFile, 0o600); err != nil {
		return Response{}, apperrors.NewIOError(apperrors.ErrCodeConversionFailed,
			"Failed to stage original file for conversion", err)
	}

	stdin, err := json.Marshal(payload{
		Kind:          kind,
		LineEdits:     req.LineEdits,
		InsertedLines: req.InsertedLines,
		Aggressive:    req.Aggressive,
	})
	if err != nil {
		return Response{}, apperrors.NewInternalError(apperrors.ErrCodeConversionFailed,
			"Failed to encode conversion payload", err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, c.cfg.Args...), inputPath, outputPath)
	cmd := exec.CommandContext(ctx, c.cfg.Command, args...)
	cmd.Stdin = bytes.NewReader(stdin)

	var diag bytes.Buffer
	limited := &limitedWriter{w: &diag, remaining: maxDiagnosticBytes}
	cmd.Stdout = limited
	cmd.Stderr = limited

	if runErr := cmd.Run(); runErr != nil {
		if c.logger != nil {
			c.logger.LogError(runErr, "Converter command failed",
				"command", c.cfg.Command,
				"diagnostics", diag.String())
		}
		return Response{}, apperrors.NewIOError(apperrors.ErrCodeConversionFailed,
			"Converter command failed", runErr)
	}

	file, err := readBounded(outputPath, c.cfg.MaxOutputBytes)
	if err != nil {
		return Response{}, apperrors.NewIOError(apperrors.ErrCodeConversionFailed,
			"Failed to read converted file", err)
	}

	verified, err := extract.FromBytes(req.Filename, file)
	if err != nil {
		return Response{}, apperrors.NewIOError(apperrors.ErrCodeConversionFailed,
			"Converted file failed re-extraction", err)
	}

	return Response{
		File:          file,
		ExtractedText: verified.Text,
		Diagnostics:   diag.String(),
	}, nil
}

// readBounded reads a file, failing when it exceeds the ceiling.
func readBounded(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if maxBytes <= 0 {
		return io.ReadAll(f)
	}
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("converter output exceeds %d bytes", maxBytes)
	}
	return data, nil
}

// limitedWriter drops writes past its ceiling without failing the
// command.
type limitedWriter struct {
	w         io.Writer
	remaining int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if l.remaining <= 0 {
		return n, nil
	}
	if n > l.remaining {
		if _, err := l.w.Write(p[:l.remaining]); err != nil {
			return 0, err
		}
		l.remaining = 0
		return n, nil
	}
	if _, err := l.w.Write(p); err != nil {
		return 0, err
	}
	l.remaining -= n
	return n, nil
}
