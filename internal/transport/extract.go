package transport

import (
	"encoding/json"
	"fmt"
)

// ExtractList normalizes the known result envelopes of the remote API.
// Depending on server version and method, a list comes back as a bare
// array, {value:[...]}, or {docs:[...]}; every call site goes through this
// one function instead of shape-sniffing locally.
func ExtractList(raw json.RawMessage) ([]json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var envelope struct {
		Value []json.RawMessage `json:"value"`
		Docs  []json.RawMessage `json:"docs"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("unexpected result shape: %s", truncate(raw, 120))
	}
	if envelope.Value != nil {
		return envelope.Value, nil
	}
	if envelope.Docs != nil {
		return envelope.Docs, nil
	}
	return nil, fmt.Errorf("unexpected result shape: %s", truncate(raw, 120))
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
