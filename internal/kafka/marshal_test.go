package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapPayload(t *testing.T) {
	type payload struct {
		OrderNumber string `json:"order_number"`
		Qty         int    `json:"qty"`
	}
	raw := MustMarshal(payload{OrderNumber: "ORD202603041234", Qty: 2})

	got, err := UnwrapPayload[payload](json.RawMessage(raw))
	require.NoError(t, err)
	assert.Equal(t, payload{OrderNumber: "ORD202603041234", Qty: 2}, got)

	_, err = UnwrapPayload[payload](json.RawMessage(`"nope"`))
	assert.Error(t, err)
}

func TestMustMarshalPanicsOnUnsupportedValue(t *testing.T) {
	assert.Panics(t, func() { MustMarshal(make(chan int)) })
}
