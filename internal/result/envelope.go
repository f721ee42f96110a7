package result

import "reflect"

// ErrorItem groups the messages reported under one key.
type ErrorItem struct {
	Key           string   `json:"key"`
	ErrorMessages []string `json:"errorMessages"`
}

// Envelope is the wire-level response every endpoint returns. Exactly one of
// Data and Errors is populated.
type Envelope struct {
	Data   any         `json:"data"`
	Errors []ErrorItem `json:"errors"`
}

// Builder accumulates keyed error messages. The first occurrence of a key
// wins: later occurrences under the same key are dropped, not merged.
type Builder struct {
	items []ErrorItem
	seen  map[string]struct{}
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]struct{})}
}

// Add records one occurrence of key with its messages. An occurrence without
// messages claims nothing.
func (b *Builder) Add(key string, messages ...string) *Builder {
	if len(messages) == 0 {
		return b
	}
	if b.seen == nil {
		b.seen = make(map[string]struct{})
	}
	if _, dup := b.seen[key]; dup {
		return b
	}
	b.seen[key] = struct{}{}
	msgs := make([]string, len(messages))
	copy(msgs, messages)
	b.items = append(b.items, ErrorItem{Key: key, ErrorMessages: msgs})
	return b
}

// Len reports how many error groups have been kept.
func (b *Builder) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// Items returns a copy of the kept error groups in first-seen order.
func (b *Builder) Items() []ErrorItem {
	if b == nil {
		return []ErrorItem{}
	}
	out := make([]ErrorItem, len(b.items))
	copy(out, b.items)
	return out
}

// SuccessEnvelope wraps a payload. A nil payload is replaced by the Success
// kind name so the envelope never comes out empty.
func SuccessEnvelope(payload any) Envelope {
	if payload == nil {
		payload = Success.String()
	}
	return Envelope{Data: payload, Errors: []ErrorItem{}}
}

// FailureEnvelope renders the builder's groups with no data.
func FailureEnvelope(b *Builder) Envelope {
	return Envelope{Data: nil, Errors: b.Items()}
}

// EnvelopeFor renders an outcome. Non-success outcomes are reported under
// their kind name.
func EnvelopeFor[T any](o Outcome[T]) Envelope {
	if o.Kind == Success {
		return SuccessEnvelope(payloadOf(o.Data))
	}
	return FailureEnvelope(NewBuilder().Add(o.Kind.String(), o.Message))
}

// payloadOf maps typed nils (nil pointers, slices, maps) to an untyped nil.
func payloadOf(v any) any {
	if v == nil || isNilValue(v) {
		return nil
	}
	return v
}

func isNilValue(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
