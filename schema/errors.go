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

package schema

import "fmt"

// UnknownEntityError is returned when a name or Go type was never registered.
type UnknownEntityError struct {
	Entity string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("schema: unknown entity %q", e.Entity)
}

// UnknownFieldError is returned when an entity has no field or relation with
// the requested name.
type UnknownFieldError struct {
	Entity string
	Field  string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("schema: entity %s has no field %q", e.Entity, e.Field)
}

// RegistrationError reports a model whose tags cannot describe an entity.
type RegistrationError struct {
	Entity string
	Reason string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("schema: cannot register %s: %s", e.Entity, e.Reason)
}
