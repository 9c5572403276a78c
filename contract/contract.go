// Package contract defines the inference input/output contract: the shape of
// one feature record, its validity bounds, and a structural description of
// both for contract discovery.
package contract

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// MinFeatureValue and MaxFeatureValue bound every measurement in cm.
	MinFeatureValue = 0.0
	MaxFeatureValue = 10.0
)

// FeatureRecord is one validated inference input. Construct it through
// ParseRequest; a record that failed validation is never returned.
type FeatureRecord struct {
	SepalLength float64 `json:"sepal_length"`
	SepalWidth  float64 `json:"sepal_width"`
	PetalLength float64 `json:"petal_length"`
	PetalWidth  float64 `json:"petal_width"`
}

// Vector returns the features in training-time order. The order must match
// the column order the model was fitted on.
func (f FeatureRecord) Vector() []float64 {
	return []float64{f.SepalLength, f.SepalWidth, f.PetalLength, f.PetalWidth}
}

// Validation failure reasons.
const (
	ReasonMalformed  = "malformed"
	ReasonMissing    = "missing"
	ReasonWrongType  = "wrong_type"
	ReasonOutOfRange = "out_of_range"
)

// ValidationError reports the first field that failed validation and why.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Detail)
}

type rawFeatures struct {
	SepalLength *float64 `json:"sepal_length"`
	SepalWidth  *float64 `json:"sepal_width"`
	PetalLength *float64 `json:"petal_length"`
	PetalWidth  *float64 `json:"petal_width"`
}

type rawRequest struct {
	Features *rawFeatures `json:"features"`
}

// ParseRequest decodes and validates a /predict request body. Checks run in a
// fixed order per field: presence, then type, then range, so a missing field
// is reported as missing rather than out of range.
func ParseRequest(body []byte) (FeatureRecord, error) {
	var req rawRequest
	if err := json.Unmarshal(body, &req); err != nil {
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
			return FeatureRecord{}, &ValidationError{
				Field:  strings.TrimPrefix(typeErr.Field, "features."),
				Reason: ReasonWrongType,
				Detail: fmt.Sprintf("expected a number, got %s", typeErr.Value),
			}
		}
		return FeatureRecord{}, &ValidationError{
			Field:  "body",
			Reason: ReasonMalformed,
			Detail: "request body is not valid JSON",
		}
	}

	if req.Features == nil {
		return FeatureRecord{}, &ValidationError{
			Field:  "features",
			Reason: ReasonMissing,
			Detail: "field is required",
		}
	}

	fields := []struct {
		name  string
		value *float64
	}{
		{"sepal_length", req.Features.SepalLength},
		{"sepal_width", req.Features.SepalWidth},
		{"petal_length", req.Features.PetalLength},
		{"petal_width", req.Features.PetalWidth},
	}

	for _, field := range fields {
		if field.value == nil {
			return FeatureRecord{}, &ValidationError{
				Field:  field.name,
				Reason: ReasonMissing,
				Detail: "field is required",
			}
		}
	}
	for _, field := range fields {
		if *field.value < MinFeatureValue || *field.value > MaxFeatureValue {
			return FeatureRecord{}, &ValidationError{
				Field:  field.name,
				Reason: ReasonOutOfRange,
				Detail: fmt.Sprintf("value %g is outside [%g, %g]", *field.value, MinFeatureValue, MaxFeatureValue),
			}
		}
	}

	return FeatureRecord{
		SepalLength: *req.Features.SepalLength,
		SepalWidth:  *req.Features.SepalWidth,
		PetalLength: *req.Features.PetalLength,
		PetalWidth:  *req.Features.PetalWidth,
	}, nil
}
