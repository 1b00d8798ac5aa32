package privilege

import "sort"

// Params carries the raw request parameters relevant to scope resolution:
// entity ids from the path, query or body. Empty strings count as absent.
// Plural "...Ids" keys hold sets, supplied either as []string or as
// map[string]struct{}; they are normalized to sorted slices at this boundary
// so nothing downstream branches on the runtime type.
type Params map[string]any

func (p Params) str(keys ...string) string {
	for _, k := range keys {
		if s, ok := p[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func (p Params) stringSet(key string) []string {
	switch v := p[key].(type) {
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case map[string]struct{}:
		out := make([]string, 0, len(v))
		for s := range v {
			if s != "" {
				out = append(out, s)
			}
		}
		sort.Strings(out)
		return out
	}
	return nil
}

func (p Params) has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

func (p Params) permissionList(key string) []Permission {
	if v, ok := p[key].([]Permission); ok {
		return v
	}
	return nil
}
