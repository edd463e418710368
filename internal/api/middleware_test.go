package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_OrderIsListOrder(t *testing.T) {
	var order []string

	tag := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return roundTripFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(req)
			})
		}
	}

	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		order = append(order, "base")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	req, err := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	require.NoError(t, err)

	_, err = Chain(base, tag("first"), tag("second")).RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "base"}, order)
}

func TestRequestID_PreservesExistingHeader(t *testing.T) {
	var got string
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		got = req.Header.Get("X-Request-Id")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	req, err := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-Id", "fixed-id")

	_, err = Chain(base, RequestID()).RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", got)
}

func TestRequestID_DoesNotMutateOriginalRequest(t *testing.T) {
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	req, err := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	require.NoError(t, err)

	_, err = Chain(base, RequestID()).RoundTrip(req)
	require.NoError(t, err)
	assert.Empty(t, req.Header.Get("X-Request-Id"), "round trippers must clone, not mutate")
}
