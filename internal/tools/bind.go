package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"shoptools/internal/shopify"
)

// InvalidArgsError reports arguments that failed decoding or validation.
// Fields maps the argument path to the failed rule.
type InvalidArgsError struct {
	Tool   string
	Fields map[string]string
	Err    error
}

func (e *InvalidArgsError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: invalid arguments: %v", e.Tool, e.Err)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + e.Fields[k]
	}
	return fmt.Sprintf("%s: invalid arguments: %s", e.Tool, strings.Join(parts, ", "))
}

func (e *InvalidArgsError) Unwrap() error { return e.Err }

// newValidator returns a validator that reports json field names and knows
// the commerce enums and decimal amounts.
func newValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		d, ok := f.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		x, _ := d.Float64()
		return x
	}, decimal.Decimal{})
	_ = v.RegisterValidation("cancel_reason", func(fl validatorv10.FieldLevel) bool {
		_, err := shopify.ParseCancelReason(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("webhook_topic", func(fl validatorv10.FieldLevel) bool {
		_, err := shopify.ParseWebhookTopic(fl.Field().String())
		return err == nil
	})
	v.RegisterStructValidation(discountStructValidation, createDiscountArgs{})
	v.RegisterStructValidation(webhookStructValidation, manageWebhookArgs{})
	return v
}

// bindArgs decodes raw over the defaults already held by out and validates
// the result. Unknown argument names are rejected.
func bindArgs(v *validatorv10.Validate, tool string, raw json.RawMessage, out any) error {
	if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(out); err != nil {
			return &InvalidArgsError{Tool: tool, Err: err}
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return &InvalidArgsError{Tool: tool, Err: errors.New("trailing data after arguments")}
		}
	}
	if err := v.Struct(out); err != nil {
		var ve validatorv10.ValidationErrors
		if !errors.As(err, &ve) {
			return &InvalidArgsError{Tool: tool, Err: err}
		}
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			fields[fieldPath(fe.Namespace())] = rule
		}
		return &InvalidArgsError{Tool: tool, Fields: fields, Err: err}
	}
	return nil
}

// fieldPath drops the struct name validator puts in front of the namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
