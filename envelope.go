package libemit

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Envelope is the wire form of a single dispatch: the event key rendered
// as text plus the arguments it was emitted with.
type Envelope struct {
	Event string `json:"event"`
	Args  []any  `json:"args,omitempty"`
}

func (e Envelope) String() string {
	return fmt.Sprintf("Envelope{event=%s,args=%d}", e.Event, len(e.Args))
}

// EncodeFunc turns one dispatch into an outbound frame.
type EncodeFunc[K comparable] func(event K, args []any) (Frame, error)

// NewJSONEncoder returns an EncodeFunc that renders dispatches as JSON
// envelopes, with the event key formatted through fmt.Sprint.
func NewJSONEncoder[K comparable]() EncodeFunc[K] {
	return func(event K, args []any) (Frame, error) {
		bts, err := json.Marshal(Envelope{Event: fmt.Sprint(event), Args: args})
		if err != nil {
			return Frame{}, errors.Wrap(err, "cannot encode envelope")
		}
		return NewDataFrame(bts), nil
	}
}
