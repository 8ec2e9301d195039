package revision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StateKey is the scm-data key holding the serialized revision map.
const StateKey = "BRANCH_TO_REVISION_MAP"

// ErrNoState is returned when scm-data carries no revision map. Callers that
// want a first poll must ask for one explicitly.
var ErrNoState = errors.New("no " + StateKey + " in scm-data")

// DecodeState reads the revision map out of scm-data. A missing, empty or
// null map is an error, as is unparsable data: starting over would report
// every known change again.
func DecodeState(data map[string]string) (*Map, error) {
	raw, ok := data[StateKey]
	if !ok {
		return nil, ErrNoState
	}
	switch strings.TrimSpace(raw) {
	case "", "null":
		return nil, fmt.Errorf("decoding %s: %w", StateKey, ErrNoState)
	}

	m := NewMap()
	if err := json.Unmarshal([]byte(raw), m); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", StateKey, err)
	}
	return m, nil
}

// EncodeState renders m as scm-data.
func EncodeState(m *Map) (map[string]string, error) {
	if m == nil {
		m = NewMap()
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", StateKey, err)
	}
	return map[string]string{StateKey: string(raw)}, nil
}
