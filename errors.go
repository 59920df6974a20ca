/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package querydsl

import (
	"errors"
	"fmt"

	"github.com/tomoncle/querydsl/schema"
)

// ErrNoResult is returned by FetchOne when no row matches.
var ErrNoResult = errors.New("querydsl: no result")

// ErrUnresolved is returned when reading a relation that was neither fetch
// joined nor explicitly loaded.
var ErrUnresolved = errors.New("querydsl: relation is not resolved")

// UnknownFieldError is returned when a path names a field the registry does
// not know.
type UnknownFieldError = schema.UnknownFieldError

// ValidationError reports a malformed query descriptor.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Op == "" {
		return "querydsl: invalid query: " + e.Reason
	}
	return fmt.Sprintf("querydsl: invalid query: %s: %s", e.Op, e.Reason)
}

func invalid(op, format string, args ...any) error {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// TooManyResultsError is returned by FetchOne when more than one row matches.
type TooManyResultsError struct {
	Query string
}

func (e *TooManyResultsError) Error() string {
	return "querydsl: more than one result for " + e.Query
}

// StorageError wraps a failure of the storage collaborator together with the
// diagnostic form of the statement that caused it.
type StorageError struct {
	Op      string
	QueryID string
	Query   string
	// Class is the storage specific error class when a classifier is set.
	Class string
	Err   error
}

func (e *StorageError) Error() string {
	msg := fmt.Sprintf("querydsl: %s failed [%s]: %v", e.Op, e.Query, e.Err)
	if e.Class != "" {
		msg += " (" + e.Class + ")"
	}
	return msg
}

func (e *StorageError) Unwrap() error { return e.Err }
