package tools

import (
	"github.com/go-playground/validator/v10"

	"trusio/pkg/errors"
)

// validate is shared across schemas; the validator is safe for concurrent use.
var validate = validator.New()

// ParamType is the closed set of parameter types a schema can declare.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
)

// ParamSpec declares one tool parameter.
type ParamSpec struct {
	Name        string
	Type        ParamType
	Required    bool
	Description string

	// Rule is an optional validator tag applied to the value,
	// e.g. "oneof=weekly monthly yearly" or "gte=1,lte=100".
	Rule string
}

// Schema validates tool parameters before execution.
type Schema struct {
	Params []ParamSpec
}

// Validate checks params against the schema. A nil error means the tool may
// be invoked with these parameters.
func (s Schema) Validate(params map[string]interface{}) error {
	for _, spec := range s.Params {
		value, present := params[spec.Name]

		if !present {
			if spec.Required {
				return errors.NewValidationError(spec.Name, "required parameter missing", nil)
			}
			continue
		}

		switch spec.Type {
		case ParamString:
			str, ok := value.(string)
			if !ok {
				return errors.NewValidationError(spec.Name, "must be a string", value)
			}
			if spec.Rule != "" {
				if err := validate.Var(str, spec.Rule); err != nil {
					return errors.NewValidationError(spec.Name, "rule violated: "+spec.Rule, value)
				}
			}

		case ParamNumber:
			num, ok := toFloat(value)
			if !ok {
				return errors.NewValidationError(spec.Name, "must be a number", value)
			}
			if spec.Rule != "" {
				if err := validate.Var(num, spec.Rule); err != nil {
					return errors.NewValidationError(spec.Name, "rule violated: "+spec.Rule, value)
				}
			}

		case ParamBoolean:
			if _, ok := value.(bool); !ok {
				return errors.NewValidationError(spec.Name, "must be a boolean", value)
			}

		default:
			return errors.NewValidationError(spec.Name, "unknown parameter type", string(spec.Type))
		}
	}

	// Unknown parameters are rejected so typos surface as caller faults.
	for name := range params {
		if !s.has(name) {
			return errors.NewValidationError(name, "unknown parameter", params[name])
		}
	}

	return nil
}

// JSONSchema renders the schema as a JSON-schema object for the model.
func (s Schema) JSONSchema() map[string]interface{} {
	properties := make(map[string]interface{}, len(s.Params))
	required := []string{}

	for _, spec := range s.Params {
		prop := map[string]interface{}{
			"type":        string(spec.Type),
			"description": spec.Description,
		}
		properties[spec.Name] = prop
		if spec.Required {
			required = append(required, spec.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (s Schema) has(name string) bool {
	for _, spec := range s.Params {
		if spec.Name == name {
			return true
		}
	}
	return false
}

// Number reads a numeric parameter with the same coercion Validate applies,
// so handlers see the value the schema accepted regardless of its Go type.
func Number(params map[string]interface{}, name string) (float64, bool) {
	return toFloat(params[name])
}

// toFloat accepts the numeric types JSON decoding produces.
func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
