package sqlstore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func jsonField(t *testing.T, payload []byte, key string) string {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &fields))
	return string(fields[key])
}
