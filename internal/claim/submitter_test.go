package claim

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitRequest() SubmitRequest {
	return SubmitRequest{
		Owner:     testOwner,
		ChainID:   8453,
		RecordIDs: []string{"r1", "r2"},
		Amount:    decimal.RequireFromString("12.5"),
		ClaimAll:  true,
	}
}

func TestAPISubmitterGasless(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/referral/claim", r.URL.Path)

		var req apiClaimRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, testOwner, req.Address)
		assert.Equal(t, uint64(8453), req.ChainID)
		assert.True(t, req.ClaimAll)

		w.Write([]byte(`{"tx_hash":"0xabc"}`))
	}))
	defer server.Close()

	submitter := NewAPISubmitter(APISubmitterConfig{BaseURL: server.URL}, nil, nil)

	txHash, err := submitter.Submit(context.Background(), submitRequest())
	require.NoError(t, err)
	assert.Equal(t, "0xabc", txHash)
}

func TestAPISubmitterDelegatesToSigner(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"contract_address":"0x4444444444444444444444444444444444444444","amount":"12.5"}`))
	}))
	defer server.Close()

	signer := SubmitterFunc(func(_ context.Context, req SubmitRequest) (string, error) {
		assert.Equal(t, uint64(8453), req.ChainID)
		return "0xsigned", nil
	})

	submitter := NewAPISubmitter(APISubmitterConfig{BaseURL: server.URL}, signer, nil)

	txHash, err := submitter.Submit(context.Background(), submitRequest())
	require.NoError(t, err)
	assert.Equal(t, "0xsigned", txHash)
}

func TestAPISubmitterNoSignerFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"contract_address":"0x4444444444444444444444444444444444444444"}`))
	}))
	defer server.Close()

	submitter := NewAPISubmitter(APISubmitterConfig{BaseURL: server.URL}, nil, nil)

	_, err := submitter.Submit(context.Background(), submitRequest())
	require.Error(t, err)
}

func TestAPISubmitterNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	submitter := NewAPISubmitter(APISubmitterConfig{BaseURL: server.URL}, nil, nil)

	_, err := submitter.Submit(context.Background(), submitRequest())
	require.Error(t, err)
}
