package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceLogic/pkg/decoder"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/session"
	"github.com/OpenTraceLab/OpenTraceLogic/pkg/sim"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func newTestServer(t *testing.T) (*echo.Echo, *session.Session) {
	t.Helper()
	sess := session.New(zerolog.Nop())
	return New(NewHandler(sess, zerolog.Nop(), "test"), zerolog.Nop()), sess
}

func do(e *echo.Echo, method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case []byte:
		rd = bytes.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rd)
	if _, raw := body.([]byte); !raw && body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func loadSPI(t *testing.T, sess *session.Session, words ...uint32) uint64 {
	t.Helper()
	ws := make([]sim.Word, len(words))
	for i, w := range words {
		ws[i] = sim.Word{Out: w, In: ^w & 0xff}
	}
	snap, err := sim.SPI{Words: ws}.Build()
	require.NoError(t, err)
	require.NoError(t, sess.Load(snap))
	return snap.Samples()
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"state":"Detached"`)
}

func TestProtocols(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodGet, "/api/protocols", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []ProtocolInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "SPI", got[0].Name)
	assert.Len(t, got[0].Roles, 4)
	assert.False(t, got[0].Roles[3].Required)
	assert.Equal(t, "Data", got[0].Kinds[3].Label)
	assert.Equal(t, "I2C", got[1].Name)
	assert.Empty(t, got[1].Options)
}

func TestDecoderLifecycle(t *testing.T) {
	e, sess := newTestServer(t)
	samples := loadSPI(t, sess, 0xA5, 0x3C)

	rec := do(e, http.MethodPost, "/api/decoders", DecoderRequest{Spec: "spi ssn:0 sclk:1 mosi:2 miso:3"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created DecoderInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 0, created.ID)
	assert.Equal(t, 2, created.Intervals)
	assert.Equal(t, "SPI SSN:0 SCLK:1 MOSI:2 MISO:3", created.Spec)

	rec = do(e, http.MethodGet, "/api/decoders/0/states", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var states StatesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &states))
	assert.Equal(t, samples, states.End)
	require.Len(t, states.States, 2)
	assert.Equal(t, uint32(0xA5), states.States[0].Primary)
	assert.Equal(t, uint32(0x5A), states.States[0].Secondary)
	assert.Equal(t, decoder.SPIData, states.States[1].Kind)

	rec = do(e, http.MethodPut, "/api/decoders/0", DecoderRequest{
		Channels: map[string]int{"ssn": 0, "sclk": 1, "mosi": 2},
		Options:  map[string]any{"bits": 16},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated DecoderInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 1, updated.Intervals)
	assert.Equal(t, []int{0, 1, 2, decoder.Unbound}, updated.Probes)
	assert.Equal(t, 15, updated.OptionsIndex["bits"])
	assert.NotEqual(t, created.Generation, updated.Generation)

	rec = do(e, http.MethodDelete, "/api/decoders/0", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(e, http.MethodGet, "/api/decoders/0", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
}

func TestCreateDecoderValidation(t *testing.T) {
	e, _ := newTestServer(t)
	cases := map[string]DecoderRequest{
		"missing role":  {Protocol: "spi", Channels: map[string]int{"ssn": 0}},
		"bad option":    {Spec: "spi ssn:0 sclk:1 mosi:2 bits=99"},
		"bad spec":      {Spec: "spi ssn"},
		"unknown proto": {Protocol: "can"},
		"empty":         {},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/api/decoders", req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"VALIDATION_ERROR"`)
		})
	}
	rec := do(e, http.MethodGet, "/api/decoders", nil)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestUpdateRejectsProtocolChange(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodPost, "/api/decoders", DecoderRequest{Spec: "i2c scl:0 sda:1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(e, http.MethodPut, "/api/decoders/0", DecoderRequest{Spec: "uart rx:0"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = do(e, http.MethodPut, "/api/decoders/x", DecoderRequest{Spec: "i2c scl:0 sda:1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatesETag(t *testing.T) {
	e, sess := newTestServer(t)
	loadSPI(t, sess, 1, 2, 3)
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/api/decoders", DecoderRequest{Spec: "spi ssn:0 sclk:1 mosi:2"}).Code)

	rec := do(e, http.MethodGet, "/api/decoders/0/states", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = do(e, http.MethodGet, "/api/decoders/0/states", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = do(e, http.MethodPost, "/api/decode", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(e, http.MethodGet, "/api/decoders/0/states", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, etag, rec.Header().Get("ETag"))
}

func TestStatesWindowAndMerge(t *testing.T) {
	e, sess := newTestServer(t)
	samples := loadSPI(t, sess, 1, 2, 3, 4, 5, 6)
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/api/decoders", DecoderRequest{Spec: "spi ssn:0 sclk:1 mosi:2"}).Code)

	rec := do(e, http.MethodGet, "/api/decoders/0/states?min=1e9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var merged StatesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &merged))
	require.Len(t, merged.States, 1)
	assert.Equal(t, uint32(1), merged.States[0].Primary)

	rec = do(e, http.MethodGet, "/api/decoders/0/states?start=10&end=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var empty StatesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.Empty(t, empty.States)

	rec = do(e, http.MethodGet, "/api/decoders/0/states?start=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/decoders/0/states?format=msgpack&end="+jsonNumber(samples), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MIMEMsgpack, rec.Header().Get(echo.HeaderContentType))
	var packed StatesResponse
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &packed))
	require.Len(t, packed.States, 6)
	assert.Equal(t, uint32(6), packed.States[5].Primary)
}

func TestDecodeWithoutCapture(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodPost, "/api/decode", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoadCapture(t *testing.T) {
	e, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/api/decoders", DecoderRequest{Spec: "spi ssn:0 sclk:1 mosi:2"}).Code)

	snap, err := sim.SPI{Words: []sim.Word{{Out: 0x42}}}.Build()
	require.NoError(t, err)
	raw := make([]byte, snap.Samples())
	for ch := 0; ch < 4; ch++ {
		lane, err := snap.Lane(ch)
		require.NoError(t, err)
		for i := range raw {
			if lane.At(uint64(i)) {
				raw[i] |= 1 << ch
			}
		}
	}

	rec := do(e, http.MethodPut, "/api/capture?unit_size=1&rate=1000000", raw)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(e, http.MethodGet, "/api/capture", nil)
	assert.Contains(t, rec.Body.String(), `"loaded":true`)

	rec = do(e, http.MethodGet, "/api/decoders/0", nil)
	var info DecoderInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, 1, info.Intervals)

	rec = do(e, http.MethodPut, "/api/capture?unit_size=0", raw)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func jsonNumber(n uint64) string {
	data, _ := json.Marshal(n)
	return string(data)
}
