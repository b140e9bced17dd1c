package probe

import "fmt"

// IntArg returns args[i] as an int, accepting int (what gopkg.in/yaml.v3 decodes a bare integer
// into when the target is interface{}, and what direct construction in tests uses), int64, and
// float64 (truncated).
func IntArg(args []interface{}, i int, who string) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%s: missing argument %d", who, i)
	}
	switch v := args[i].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s: argument %d must be an integer, got %T", who, i, v)
	}
}

// StringArg returns args[i] as a string.
func StringArg(args []interface{}, i int, who string) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("%s: missing argument %d", who, i)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("%s: argument %d must be a string, got %T", who, i, args[i])
	}
	return s, nil
}

// OptStringArg returns args[i] as a string, or "" if there is no such argument.
func OptStringArg(args []interface{}, i int) string {
	if i >= len(args) {
		return ""
	}
	s, _ := args[i].(string)
	return s
}

// StringMapArg returns args[i] as a map[string]string, accepting the map[string]interface{} (or
// map[interface{}]interface{}, for older yaml.v2-style decodes) shape a YAML mapping decodes to.
func StringMapArg(args []interface{}, i int, who string) (map[string]string, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("%s: missing argument %d", who, i)
	}
	out := make(map[string]string)
	switch m := args[i].(type) {
	case map[string]interface{}:
		for k, v := range m {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%s: argument %d value for key %q must be a string, got %T", who, i, k, v)
			}
			out[k] = s
		}
	case map[interface{}]interface{}:
		for k, v := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("%s: argument %d has a non-string key %v", who, i, k)
			}
			vs, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%s: argument %d value for key %q must be a string, got %T", who, i, ks, v)
			}
			out[ks] = vs
		}
	default:
		return nil, fmt.Errorf("%s: argument %d must be a mapping, got %T", who, i, args[i])
	}
	return out, nil
}

// StringSliceMapArg returns args[i] as a map[string][]string - used by the banner probe's
// name -> list-of-lines groups.
func StringSliceMapArg(args []interface{}, i int, who string) (map[string][]string, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("%s: missing argument %d", who, i)
	}
	out := make(map[string][]string)
	raw, ok := toStringKeyedMap(args[i])
	if !ok {
		return nil, fmt.Errorf("%s: argument %d must be a mapping, got %T", who, i, args[i])
	}
	for k, v := range raw {
		lines, err := toStringSlice(v)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d key %q: %w", who, i, k, err)
		}
		out[k] = lines
	}
	return out, nil
}

// ByteStringMapArg returns args[i] as a map[byte]string - used by the DNSBL probe's
// last-octet -> reason table. Keys decode as Go ints (direct construction) or as YAML ints, which
// the mapping-to-interface{} decode surfaces as int.
func ByteStringMapArg(args []interface{}, i int, who string) (map[byte]string, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("%s: missing argument %d", who, i)
	}
	raw, ok := toStringKeyedIntMap(args[i])
	if !ok {
		return nil, fmt.Errorf("%s: argument %d must be a mapping of int to string, got %T", who, i, args[i])
	}
	out := make(map[byte]string, len(raw))
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d value for key %d must be a string, got %T", who, i, k, v)
		}
		out[byte(k)] = s
	}
	return out, nil
}

func toStringKeyedIntMap(v interface{}) (map[int]interface{}, bool) {
	switch m := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[int]interface{}, len(m))
		for k, v := range m {
			n, ok := toInt(k)
			if !ok {
				return nil, false
			}
			out[n] = v
		}
		return out, true
	case map[int]interface{}:
		return m, true
	default:
		return nil, false
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func toStringKeyedMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func toStringSlice(v interface{}) ([]string, error) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string list element, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}
