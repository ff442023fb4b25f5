package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestJSONSetsProtocolVersion(t *testing.T) {
	req := &Request{
		ID:     "42",
		Method: MethodDispatched + "lua",
		Params: map[string]string{"key": "k1"},
	}
	raw, err := req.JSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"jsonrpc":"2.0","id":"42","method":"dispatched:lua","params":{"key":"k1"}}`, raw)

	parsed := &Request{}
	require.NoError(t, parsed.FromJSON(raw))
	require.Equal(t, req, parsed)
	require.Equal(t, "id=42 method=dispatched:lua params=map[key:k1]", parsed.String())
}
