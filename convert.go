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
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// assign stores a storage value into dst, which must be settable. Values
// that are not directly assignable are converted numerically when the value
// survives unchanged, or decoded with weak typing, so driver types (int64,
// []byte, text timestamps) land in the declared Go types.
func assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if dst.Kind() == reflect.Ptr {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), v); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}
	if isNumberKind(src.Kind()) && isNumberKind(dst.Kind()) {
		if !fitsNumber(src, dst.Type()) {
			return fmt.Errorf("querydsl: cannot store %T %v into %s without losing its value", v, v, dst.Type())
		}
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		Result:           dst.Addr().Interface(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("querydsl: cannot store %T into %s: %w", v, dst.Type(), err)
	}
	return nil
}

// fitsNumber reports whether src converts to t unchanged: integers must not
// overflow or change sign, and floats stored into integers must be whole.
func fitsNumber(src reflect.Value, t reflect.Type) bool {
	dst := reflect.New(t).Elem()
	switch {
	case src.CanInt():
		x := src.Int()
		switch {
		case dst.CanInt():
			return !dst.OverflowInt(x)
		case dst.CanUint():
			return x >= 0 && !dst.OverflowUint(uint64(x))
		}
	case src.CanUint():
		x := src.Uint()
		switch {
		case dst.CanInt():
			return x <= math.MaxInt64 && !dst.OverflowInt(int64(x))
		case dst.CanUint():
			return !dst.OverflowUint(x)
		}
	case src.CanFloat():
		x := src.Float()
		switch {
		case dst.CanFloat():
			return !dst.OverflowFloat(x)
		case math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x):
			return false
		case dst.CanInt():
			return x >= math.MinInt64 && x < math.MaxInt64 && !dst.OverflowInt(int64(x))
		case dst.CanUint():
			return x >= 0 && x < math.MaxUint64 && !dst.OverflowUint(uint64(x))
		}
	}
	return true
}

func convertValue[T any](v any) (T, error) {
	var out T
	if t, ok := v.(T); ok {
		return t, nil
	}
	err := assign(reflect.ValueOf(&out).Elem(), v)
	return out, err
}
