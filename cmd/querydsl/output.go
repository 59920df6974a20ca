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

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeResult prints a fetch result, one line per element for slices.
func writeResult(w io.Writer, v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		fmt.Fprintf(w, "  %v\n", v)
		return
	}
	if rv.Len() == 0 {
		fmt.Fprintln(w, "  (no rows)")
	}
	for i := 0; i < rv.Len(); i++ {
		fmt.Fprintf(w, "  %v\n", rv.Index(i).Interface())
	}
}
