package router

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/vikashloomba/mcp-query-router/internal/json"
	"github.com/vikashloomba/mcp-query-router/pkg/catalog"
)

// ErrMissingArguments is returned when a required tool argument has no value
// after extraction.
var ErrMissingArguments = errors.New("missing required arguments")

// PrepareArgs readies oracle-produced arguments for a tool call. Empty values
// of optional properties are dropped, declared scalar types are coerced, and
// a missing or empty required property is an error.
func PrepareArgs(tool catalog.ToolSpec, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for name, value := range args {
		if isEmpty(value) {
			continue
		}
		coerced, err := coerce(tool.PropertyType(name), value)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		out[name] = coerced
	}

	var missing []string
	for _, name := range tool.Required() {
		if _, ok := out[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w for tool %s: %s", ErrMissingArguments, tool.Name, strings.Join(missing, ", "))
	}
	return out, nil
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	}
	return false
}

func coerce(typ string, value any) (any, error) {
	switch typ {
	case "integer":
		// Decimal only: a leading zero is not an octal prefix.
		if s, ok := value.(string); ok {
			return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		}
		return cast.ToInt64E(value)
	case "number":
		return cast.ToFloat64E(value)
	case "boolean":
		return cast.ToBoolE(value)
	case "string":
		if _, ok := value.(string); ok {
			return value, nil
		}
		return cast.ToStringE(value)
	case "array", "object":
		s, ok := value.(string)
		if !ok {
			return value, nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("expected %s: %w", typ, err)
		}
		return decoded, nil
	}
	return value, nil
}
