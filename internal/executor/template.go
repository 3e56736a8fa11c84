package executor

import (
	"regexp"

	"github.com/hollis-dev/deskmate/internal/actuator"
	"github.com/hollis-dev/deskmate/pkg/models"
)

// templateRe matches a whole-value output reference: "{{name}}".
var templateRe = regexp.MustCompile(`^\{\{\s*([A-Za-z0-9_]+)\s*\}\}$`)

// resolveParams substitutes output references in parameter values against
// the per-task output map. The input map is not modified. A reference that
// names no recorded output fails with unresolved_reference.
func resolveParams(params map[string]string, outputs map[string]string) (actuator.Params, error) {
	if len(params) == 0 {
		return nil, nil
	}
	resolved := make(actuator.Params, len(params))
	for key, value := range params {
		m := templateRe.FindStringSubmatch(value)
		if m == nil {
			resolved[key] = value
			continue
		}
		name := m[1]
		out, ok := outputs[name]
		if !ok {
			return nil, actuator.NewError(models.ErrUnresolvedReference,
				"parameter %q references output %q, which no previous step produced", key, name)
		}
		resolved[key] = out
	}
	return resolved, nil
}
