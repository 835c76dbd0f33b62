package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/okanban/okanban/internal/orchestrator"
)

// Exit codes, spec.md §6.
const (
	exitOK       = 0
	exitUsage    = 2
	exitNotFound = 3
	exitConflict = 4
	exitIO       = 5
)

// Error codes carried in the JSON envelope's error.code field.
const (
	errCodeUsage    = "USAGE"
	errCodeNotFound = "NOT_FOUND"
	errCodeConflict = "CONFLICT"
	errCodeInvalid  = "INVALID_STATE"
	errCodeIO       = "IO"
)

// envelope is the stable JSON shape every command prints in --json mode
// (spec.md §6): {schema_version, command, project, data|error}.
type envelope struct {
	SchemaVersion int         `json:"schema_version"`
	Command       string      `json:"command"`
	Project       string      `json:"project"`
	Data          interface{} `json:"data,omitempty"`
	Error         *envelopeErr `json:"error,omitempty"`
}

type envelopeErr struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// usageError marks a flag-validation failure caught in the CLI layer
// itself, before an Orchestrator call was ever made, so classify can
// still report it as USAGE/exitUsage instead of falling through to IO.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// notFoundError marks a lookup that failed in the CLI layer itself (e.g.
// resolving a --category-slug flag) rather than inside the Orchestrator.
type notFoundError struct {
	msg string
}

func (e *notFoundError) Error() string { return e.msg }

func notFoundErrorf(format string, args ...interface{}) error {
	return &notFoundError{msg: fmt.Sprintf(format, args...)}
}

// output handles human vs JSON rendering for one command invocation.
type output struct {
	jsonMode bool
	quiet    bool
	command  string
	project  string
}

func newOutput(command, project string, jsonMode, quiet bool) *output {
	return &output{jsonMode: jsonMode, quiet: quiet, command: command, project: project}
}

// Data prints a successful result, either as human text (via humanize)
// or as the JSON envelope wrapping data.
func (o *output) Data(data interface{}, humanize func()) {
	if o.jsonMode {
		o.printEnvelope(data, nil)
		return
	}
	if o.quiet {
		return
	}
	humanize()
}

// Fail prints err and returns the exit code it maps to. Subcommand
// handlers return it, and main passes it to os.Exit.
func (o *output) Fail(err error) int {
	code, exitCode := classify(err)
	if o.jsonMode {
		o.printEnvelope(nil, &envelopeErr{Code: code, Message: err.Error()})
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
	}
	return exitCode
}

func (o *output) printEnvelope(data interface{}, errOut *envelopeErr) {
	env := envelope{
		SchemaVersion: schemaVersion,
		Command:       o.command,
		Project:       o.project,
		Data:          data,
		Error:         errOut,
	}
	enc, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to encode JSON: %v\n", err)
		os.Exit(exitIO)
	}
	fmt.Println(string(enc))
}

// classify maps an Orchestrator error onto an envelope error code and
// process exit code (spec.md §6's exit-code table).
func classify(err error) (code string, exitCode int) {
	var ue *usageError
	var nfe *notFoundError
	switch {
	case errors.As(err, &ue):
		return errCodeUsage, exitUsage
	case errors.As(err, &nfe):
		return errCodeNotFound, exitNotFound
	case orchestrator.IsUsage(err):
		return errCodeUsage, exitUsage
	case orchestrator.IsNotFound(err):
		return errCodeNotFound, exitNotFound
	case orchestrator.IsConflict(err):
		return errCodeConflict, exitConflict
	case orchestrator.IsInvariant(err):
		return errCodeInvalid, exitConflict
	default:
		return errCodeIO, exitIO
	}
}
