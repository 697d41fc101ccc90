package router

import (
	"testing"

	"dm-service/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindDecodesPayload(t *testing.T) {
	var payload dialogJoinPayload

	err := bind(&payload, []any{map[string]any{
		"partner": map[string]any{"username": "bob"},
	}})
	require.NoError(t, err)
	require.NotNil(t, payload.Partner.Username)
	assert.Equal(t, "bob", *payload.Partner.Username)
}

func TestBindMissingPayload(t *testing.T) {
	var payload dialogJoinPayload

	err := bind(&payload, nil)
	require.Error(t, err)

	apiErr, ok := err.(*exception.ApiError)
	require.True(t, ok)
	assert.Equal(t, 400, apiErr.Status)
}

func TestBindMalformedPayload(t *testing.T) {
	var payload messageReadPayload

	err := bind(&payload, []any{map[string]any{
		"readMessage": "not an object",
	}})
	require.Error(t, err)
	assert.Equal(t, "Malformed event payload", err.Error())
}
