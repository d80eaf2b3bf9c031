package doku

import "encoding/json"

// The gateway is not consistent about where it puts things: error envelopes
// come in several shapes, and the session id has a documented field plus an
// observed fallback. Each case is an ordered strategy table over the decoded
// JSON tree, first present wins.

const genericRejectMessage = "payment gateway rejected the request"

// jsonTree is a decoded JSON object of unknown shape.
type jsonTree map[string]any

// lookup walks a path of object keys through the tree.
func (t jsonTree) lookup(path ...string) (any, bool) {
	var cur any = map[string]any(t)
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// str looks up a path and returns it as a non-empty string.
func (t jsonTree) str(path ...string) (string, bool) {
	v, ok := t.lookup(path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// errorMessageStrategies extract a human-readable reason from an error
// envelope: a structured error object, a top-level message, or an opaque
// error object rendered as-is.
var errorMessageStrategies = []func(jsonTree) (string, bool){
	func(t jsonTree) (string, bool) { return t.str("error", "message") },
	func(t jsonTree) (string, bool) { return t.str("message") },
	func(t jsonTree) (string, bool) {
		raw, ok := t.lookup("error")
		if !ok {
			return "", false
		}
		b, err := json.Marshal(raw)
		if err != nil {
			return "", false
		}
		return string(b), true
	},
}

// sessionIDStrategies read the checkout session id from its documented
// location, then from the fallback key observed in sandbox responses.
var sessionIDStrategies = []func(jsonTree) (string, bool){
	func(t jsonTree) (string, bool) { return t.str("response", "order", "session_id") },
	func(t jsonTree) (string, bool) { return t.str("response", "payment_session_id") },
}

func extractErrorMessage(body []byte) string {
	var t jsonTree
	if err := json.Unmarshal(body, &t); err != nil {
		return genericRejectMessage
	}
	for _, strategy := range errorMessageStrategies {
		if msg, ok := strategy(t); ok {
			return msg
		}
	}
	return genericRejectMessage
}

func extractSessionID(body []byte) string {
	var t jsonTree
	if err := json.Unmarshal(body, &t); err != nil {
		return ""
	}
	for _, strategy := range sessionIDStrategies {
		if id, ok := strategy(t); ok {
			return id
		}
	}
	return ""
}
