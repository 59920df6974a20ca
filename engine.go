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
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/querydsl/ast"
	"github.com/tomoncle/querydsl/schema"
	"github.com/tomoncle/querydsl/utils"
)

// Storage executes lowered statements. Select returns one value slice per
// row in column order. Count returns the number of rows the select would
// return.
type Storage interface {
	Select(ctx context.Context, sel *ast.Select) ([][]any, error)
	Count(ctx context.Context, sel *ast.Select) (int64, error)
	Update(ctx context.Context, upd *ast.Update) (int64, error)
	Delete(ctx context.Context, del *ast.Delete) (int64, error)
}

// Engine executes query descriptors against one Storage. It keeps no state
// between calls; use WithStorage to run the same configuration inside a
// transaction.
type Engine struct {
	storage  Storage
	reg      *schema.Registry
	log      *logrus.Logger
	metrics  *Metrics
	classify func(error) string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for per-operation debug logs.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics enables operation metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithErrorClassifier sets the function filling StorageError.Class.
func WithErrorClassifier(fn func(error) string) Option {
	return func(e *Engine) { e.classify = fn }
}

// NewEngine creates an engine over storage for entities registered in reg.
func NewEngine(storage Storage, reg *schema.Registry, opts ...Option) *Engine {
	e := &Engine{storage: storage, reg: reg}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = utils.NewLogger("QUERYDSL")
	}
	return e
}

// WithStorage returns a copy of the engine bound to another storage, such as
// one wrapping a transaction.
func (e *Engine) WithStorage(s Storage) *Engine {
	c := *e
	c.storage = s
	return &c
}

func (e *Engine) Registry() *schema.Registry { return e.reg }

// observe runs one storage call, logging and measuring it. Failures are
// wrapped in a StorageError carrying the diagnostic text of stmt.
func (e *Engine) observe(ctx context.Context, op string, stmt fmt.Stringer, call func() (int64, error)) error {
	id := uuid.NewString()
	start := time.Now()
	n, err := call()
	elapsed := time.Since(start)
	e.metrics.observe(op, err, elapsed)
	entry := e.log.WithContext(ctx).WithFields(logrus.Fields{
		"query_id": id,
		"op":       op,
		"query":    stmt.String(),
		"elapsed":  elapsed.String(),
	})
	if err != nil {
		se := &StorageError{Op: op, QueryID: id, Query: stmt.String(), Err: err}
		if e.classify != nil {
			se.Class = e.classify(err)
		}
		entry.WithError(err).Error("storage operation failed")
		return se
	}
	entry.WithField("rows", n).Debug("storage operation done")
	return nil
}

func (e *Engine) check() error {
	if e == nil || e.storage == nil {
		return invalid("execute", "engine has no storage")
	}
	return nil
}
