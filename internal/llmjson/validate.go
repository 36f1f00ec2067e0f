package llmjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"brieflow/internal/services"
)

// Validator is implemented by result types that check their own invariants
// after decoding.
type Validator interface {
	Validate() error
}

// Validation holds either a decoded value or the reason decoding failed.
type Validation[T any] struct {
	Value T
	Err   error
}

// Valid wraps a value that passed validation.
func Valid[T any](v T) Validation[T] { return Validation[T]{Value: v} }

// Invalid wraps a validation failure.
func Invalid[T any](err error) Validation[T] { return Validation[T]{Err: err} }

// OK reports whether the value is usable.
func (v Validation[T]) OK() bool { return v.Err == nil }

// OrElse returns v when valid, otherwise the result of next. When both fail
// the errors are joined.
func (v Validation[T]) OrElse(next func() Validation[T]) Validation[T] {
	if v.Err == nil || next == nil {
		return v
	}
	alt := next()
	if alt.Err == nil {
		return alt
	}
	return Invalid[T](errors.Join(v.Err, alt.Err))
}

// Unwrap returns the value and error.
func (v Validation[T]) Unwrap() (T, error) { return v.Value, v.Err }

// Option tunes ExtractAndValidate.
type Option func(*options)

type options struct {
	fallback     func(any) any
	strictFields bool
}

// WithFallback registers a transform applied to the generic value when the
// first decode fails. The transformed value is validated once more.
func WithFallback(transform func(any) any) Option {
	return func(o *options) { o.fallback = transform }
}

// WithStrictFields rejects objects carrying fields T does not declare.
func WithStrictFields() Option {
	return func(o *options) { o.strictFields = true }
}

// ExtractAndValidate extracts a value from raw and decodes it into T.
func ExtractAndValidate[T any](raw string, opts ...Option) (T, Result, error) {
	var zero T
	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	res, err := Extract(raw)
	if err != nil {
		return zero, Result{}, err
	}

	usedFallback := false
	validation := decodeAs[T]([]byte(res.JSON), cfg.strictFields).OrElse(func() Validation[T] {
		if cfg.fallback == nil {
			return Invalid[T](errors.New("no fallback transform"))
		}
		usedFallback = true
		data, err := json.Marshal(cfg.fallback(res.Value))
		if err != nil {
			return Invalid[T](fmt.Errorf("encode fallback value: %w", err))
		}
		return decodeAs[T](data, cfg.strictFields)
	})

	value, err := validation.Unwrap()
	if err != nil {
		return zero, res, services.Wrap(services.ErrValidation, "", "validate", fmt.Sprintf("value does not match %T", zero), err)
	}
	if usedFallback {
		var generic any
		if data, mErr := json.Marshal(value); mErr == nil && json.Unmarshal(data, &generic) == nil {
			res.Value = generic
			res.JSON = string(data)
		}
		res.FallbackApplied = true
	}
	return value, res, nil
}

func decodeAs[T any](data []byte, strict bool) Validation[T] {
	var out T
	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&out); err != nil {
		return Invalid[T](fmt.Errorf("decode %T: %w", out, err))
	}
	if v, ok := any(&out).(Validator); ok {
		if err := v.Validate(); err != nil {
			return Invalid[T](err)
		}
	}
	return Valid(out)
}
