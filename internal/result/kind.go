// Package result defines the outcome every operation reports and the
// envelope that carries it to callers.
package result

import "encoding/json"

// Kind classifies how an operation ended. The set is closed; the zero value
// is deliberately not a member.
type Kind int

const (
	Success Kind = iota + 1
	BadRequest
	NotFound
	Failed
)

var kindNames = map[Kind]string{
	Success:    "Success",
	BadRequest: "BadRequest",
	NotFound:   "NotFound",
	Failed:     "Failed",
}

// Kinds lists every member of the taxonomy in declaration order.
func Kinds() []Kind {
	return []Kind{Success, BadRequest, NotFound, Failed}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether k belongs to the taxonomy.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}
