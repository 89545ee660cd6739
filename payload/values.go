package payload

import "strconv"

// Accessors for untyped payload nodes. Keys are matched exactly first, then
// case/underscore-insensitively, so "numberOfBedrooms" and "number_of_bedrooms"
// both resolve.

func lookup(n map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := n[k]; ok {
			return v, true
		}
	}
	for _, k := range keys {
		want := normalizeKey(k)
		for nk, v := range n {
			if normalizeKey(nk) == want {
				return v, true
			}
		}
	}
	return nil, false
}

// String returns the first string value under any of keys, "" if absent.
func String(n map[string]interface{}, keys ...string) string {
	if n == nil {
		return ""
	}
	v, ok := lookup(n, keys...)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Number returns the first numeric value under any of keys. JSON numbers and
// numeric strings both count.
func Number(n map[string]interface{}, keys ...string) *float64 {
	if n == nil {
		return nil
	}
	v, ok := lookup(n, keys...)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return &f
		}
	}
	return nil
}

// Bool returns the first boolean value under any of keys, false if absent.
func Bool(n map[string]interface{}, keys ...string) bool {
	if n == nil {
		return false
	}
	v, ok := lookup(n, keys...)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Object returns the first nested object under any of keys.
func Object(n map[string]interface{}, keys ...string) map[string]interface{} {
	if n == nil {
		return nil
	}
	v, ok := lookup(n, keys...)
	if !ok {
		return nil
	}
	obj, _ := v.(map[string]interface{})
	return obj
}

// List returns the first array value under any of keys.
func List(n map[string]interface{}, keys ...string) []interface{} {
	if n == nil {
		return nil
	}
	v, ok := lookup(n, keys...)
	if !ok {
		return nil
	}
	arr, _ := v.([]interface{})
	return arr
}

// URLStrings flattens an image-array value where entries are either plain
// strings or objects carrying the URL under a conventional key.
func URLStrings(items []interface{}) []string {
	var out []string
	for _, item := range items {
		switch t := item.(type) {
		case string:
			out = append(out, t)
		case map[string]interface{}:
			if u := String(t, "url", "srcUrl", "src", "contentUrl", "mainImageSrc"); u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}
