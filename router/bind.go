package router

import (
	"encoding/json"

	"dm-service/exception"
)

// bind decodes the first socket.io argument into a typed payload. Arguments
// arrive as decoded JSON values, so a marshal round trip gives strict typing
// without a hand-written mapper per event.
func bind(v any, args []any) error {
	if len(args) == 0 {
		return exception.BadRequest("Missing event payload")
	}

	raw, err := json.Marshal(args[0])
	if err != nil {
		return exception.BadRequest("Malformed event payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return exception.BadRequest("Malformed event payload")
	}

	return nil
}
