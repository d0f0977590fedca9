// pkg/registry/validate.go
package registry

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Validate checks the registry for structural problems: missing identifiers,
// duplicate task types and input/output schemas that do not compile as JSON
// Schema documents.
func Validate(reg *ActivityRegistry) error {
	if len(reg.Activities) == 0 {
		return fmt.Errorf("registry has no activities")
	}

	seen := make(map[string]string, len(reg.Activities))
	for _, a := range reg.Activities {
		if a.ID == "" {
			return fmt.Errorf("activity with task type %q has no id", a.TaskType)
		}
		if a.TaskType == "" {
			return fmt.Errorf("activity %s has no task type", a.ID)
		}
		if prev, ok := seen[a.TaskType]; ok {
			return fmt.Errorf("task type %q declared by both %s and %s", a.TaskType, prev, a.ID)
		}
		seen[a.TaskType] = a.ID

		if err := compileSchema(a.InputSchema); err != nil {
			return fmt.Errorf("activity %s: input schema: %w", a.ID, err)
		}
		if err := compileSchema(a.OutputSchema); err != nil {
			return fmt.Errorf("activity %s: output schema: %w", a.ID, err)
		}
	}
	return nil
}

// ValidateVariables checks job variables against an activity schema.
func ValidateVariables(schema map[string]interface{}, variables map[string]interface{}) error {
	if len(schema) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(variables),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return fmt.Errorf("variables invalid: %s", first.String())
	}
	return nil
}

func compileSchema(schema map[string]interface{}) error {
	if len(schema) == 0 {
		return nil
	}
	_, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	return err
}
