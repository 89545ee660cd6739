package payload

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Global-variable markers the portal has used over time to embed its
// client-side app state. Checked in order inside every inline script.
var stateMarkers = []string{
	"window.jsonModel =",
	"window.PAGE_MODEL =",
	"window.__PRELOADED_STATE__ =",
	"window.adInfo =",
}

// stateScriptID is the script element id used by the portal's SSR framework.
const stateScriptID = "__NEXT_DATA__"

// MaxSearchDepth bounds the breadth-first walk over an app-state blob.
const MaxSearchDepth = 6

// AppStateBlobs returns every embedded app-state JSON blob found in the
// document, in document order. Malformed blobs are skipped.
func AppStateBlobs(doc *goquery.Document) []interface{} {
	var blobs []interface{}

	if sel := doc.Find("script#" + stateScriptID); sel.Length() > 0 {
		var v interface{}
		if err := json.Unmarshal([]byte(sel.First().Text()), &v); err == nil {
			blobs = append(blobs, v)
		}
	}

	doc.Find("script:not([src])").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		for _, marker := range stateMarkers {
			idx := strings.Index(text, marker)
			if idx < 0 {
				continue
			}
			raw := balancedObject(text[idx+len(marker):])
			if raw == "" {
				continue
			}
			var v interface{}
			if err := json.Unmarshal([]byte(raw), &v); err == nil {
				blobs = append(blobs, v)
			}
		}
	})

	return blobs
}

// balancedObject returns the first brace-balanced JSON object in s,
// honouring string literals and escapes.
func balancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// FindListingNode walks root breadth-first looking for the first object whose
// shape matches a listing payload: an address-like key plus at least one of a
// bedroom-count, property-type, or price key. Shallower matches win and the
// walk stops at the first hit. Depth is capped at MaxSearchDepth and already
// visited containers are never re-entered.
func FindListingNode(root interface{}) map[string]interface{} {
	type entry struct {
		node  interface{}
		depth int
	}

	queue := []entry{{node: root}}
	seen := make(map[uintptr]bool)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth > MaxSearchDepth {
			continue
		}
		if ptr, ok := containerPtr(cur.node); ok {
			if seen[ptr] {
				continue
			}
			seen[ptr] = true
		}

		switch n := cur.node.(type) {
		case map[string]interface{}:
			if looksLikeListing(n) {
				return n
			}
			for _, v := range n {
				queue = append(queue, entry{node: v, depth: cur.depth + 1})
			}
		case []interface{}:
			for _, v := range n {
				queue = append(queue, entry{node: v, depth: cur.depth + 1})
			}
		}
	}

	return nil
}

func containerPtr(v interface{}) (uintptr, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	}
	return 0, false
}

func looksLikeListing(n map[string]interface{}) bool {
	var hasAddress, hasSignal bool
	for k := range n {
		key := normalizeKey(k)
		switch {
		case strings.Contains(key, "address"):
			hasAddress = true
		case strings.Contains(key, "bed"),
			strings.Contains(key, "propertytype"),
			strings.Contains(key, "propertysubtype"),
			strings.Contains(key, "price"):
			hasSignal = true
		}
	}
	return hasAddress && hasSignal
}

func normalizeKey(k string) string {
	k = strings.ToLower(k)
	k = strings.ReplaceAll(k, "_", "")
	k = strings.ReplaceAll(k, "-", "")
	return k
}
