// Package errors provides error handling for the nexus analyzer.
//
// This package re-exports github.com/cockroachdb/errors so every package
// wraps and inspects errors the same way, with stack traces and hints.
//
// Usage:
//
//	// Wrap with context
//	if err := loadFile(path); err != nil {
//	    return errors.Wrapf(err, "failed to load %s", path)
//	}
//
//	// Signal a broken input contract
//	return errors.NewInputContractError("transaction %d has no date", i)
//
//	// Check errors
//	if errors.IsInputContract(err) {
//	    // fail the run
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint      = crdb.WithHint
	WithHintf     = crdb.WithHintf
	WithDetail    = crdb.WithDetail
	WithDetailf   = crdb.WithDetailf
	GetAllHints   = crdb.GetAllHints
	FlattenHints  = crdb.FlattenHints
	GetAllDetails = crdb.GetAllDetails
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Sentinel errors shared across the pipeline.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrInputContract indicates the input table or data violates the shape
	// the analysis requires (missing fields, unparseable dates, bad window).
	// These are integration errors and abort the run.
	ErrInputContract = New("input contract violation")

	// ErrInvalidConfig indicates a configuration file is malformed.
	ErrInvalidConfig = New("invalid configuration")

	// ErrNotFound indicates a referenced file or entry does not exist
	ErrNotFound = New("not found")
)

// IsInputContract checks if an error is or wraps ErrInputContract.
func IsInputContract(err error) bool {
	return err != nil && Is(err, ErrInputContract)
}

// IsInvalidConfig checks if an error is or wraps ErrInvalidConfig.
func IsInvalidConfig(err error) bool {
	return err != nil && Is(err, ErrInvalidConfig)
}

// IsNotFound checks if an error is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NewInputContractError creates an input-contract error with a formatted message
func NewInputContractError(format string, args ...interface{}) error {
	return Wrap(ErrInputContract, Newf(format, args...).Error())
}

// NewInvalidConfigError creates an invalid-config error with a formatted message
func NewInvalidConfigError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidConfig, Newf(format, args...).Error())
}
