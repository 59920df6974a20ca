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

package database

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tomoncle/querydsl/schema"
)

// SQLModel is a bun model created by migrations. Instance returns a struct
// pointer; lower Priority values are created first.
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

// ModelRegistry stores SQL models and exposes them in a deterministic order.
type ModelRegistry interface {
	Register(model SQLModel)
	Models() []SQLModel
}

type modelRegistry struct {
	models []SQLModel
	mutex  sync.RWMutex
}

func NewModelRegistry() ModelRegistry {
	return &modelRegistry{}
}

func (r *modelRegistry) Register(model SQLModel) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.models = append(r.models, model)
}

// Models returns the models by ascending priority, registration order first
// among equals.
func (r *modelRegistry) Models() []SQLModel {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]SQLModel, len(r.models))
	copy(result, r.models)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority() < result[j].Priority()
	})
	return result
}

type ModelAdapter struct {
	instance interface{}
	priority int
}

// NewModelAdapter wraps a struct instance and priority into an SQLModel.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return &ModelAdapter{instance: instance, priority: priority}
}

func (a *ModelAdapter) Instance() interface{} { return a.instance }

func (a *ModelAdapter) Priority() int { return a.priority }

// ModelsFromRegistry registers every entity of reg with a priority equal to
// the length of its longest many-to-one chain, so referenced tables exist
// before the tables pointing at them. Cycles are rejected.
func ModelsFromRegistry(reg *schema.Registry) (ModelRegistry, error) {
	models := NewModelRegistry()
	if reg == nil {
		return models, nil
	}
	depth := map[string]int{}
	visiting := map[string]bool{}
	var visit func(e *schema.Entity) (int, error)
	visit = func(e *schema.Entity) (int, error) {
		if d, ok := depth[e.Name]; ok {
			return d, nil
		}
		if visiting[e.Name] {
			return 0, fmt.Errorf("many-to-one cycle through %s", e.Name)
		}
		visiting[e.Name] = true
		d := 0
		for _, rel := range e.Relations {
			if rel.Kind != schema.ManyToOne || rel.Target == e.Name {
				continue
			}
			target, err := reg.Entity(rel.Target)
			if err != nil {
				return 0, err
			}
			td, err := visit(target)
			if err != nil {
				return 0, err
			}
			d = max(d, td+1)
		}
		visiting[e.Name] = false
		depth[e.Name] = d
		return d, nil
	}
	for _, e := range reg.Entities() {
		d, err := visit(e)
		if err != nil {
			return nil, err
		}
		models.Register(NewModelAdapter(e.New().Interface(), d))
	}
	return models, nil
}

func modelInstances(models ModelRegistry) []interface{} {
	ms := models.Models()
	out := make([]interface{}, len(ms))
	for i, m := range ms {
		out[i] = m.Instance()
	}
	return out
}
