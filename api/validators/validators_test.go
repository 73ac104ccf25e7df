package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
)

type quantityBody struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

func TestDecodeJSONBodyValidatesFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"quantity":0}`))
	var body quantityBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "quantity")
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"quantity":2,"qty":3}`))
	var body quantityBody
	err := DecodeJSONBody(req, &body)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"quantity":3}`))
	var body quantityBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, 3, body.Quantity)
}

func TestParseQueryInt64(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?shipping=15000&tax=abc&neg=-1", nil)

	value, err := ParseQueryInt64(req, "shipping", 0, 0, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), value)

	value, err = ParseQueryInt64(req, "missing", 7, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(7), value)

	_, err = ParseQueryInt64(req, "tax", 0, 0, 10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseQueryInt64(req, "neg", 0, 0, 10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParsePathID(t *testing.T) {
	withParam := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("lineId", value)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}

	id, err := ParsePathID(withParam("42"), "lineId")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "0", "-3", "x"} {
		_, err := ParsePathID(withParam(raw), "lineId")
		assert.Truef(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "raw=%q", raw)
	}
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	token, err = BearerToken("abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	_, err = BearerToken("bearer  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = BearerToken("")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "HEMAT", NormalizeCode("  HEMAT ", 0))
	assert.Equal(t, "HEMAT10", NormalizeCode("HEMAT 10\t", 0))
	assert.Equal(t, "HEM", NormalizeCode("HEMAT", 3))
	assert.Equal(t, "DISKONé", NormalizeCode("DISKONéé", 7))
	assert.Empty(t, NormalizeCode("   ", 10))
}
