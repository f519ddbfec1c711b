package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// envelope mirrors models.Response with raw payloads for decoding in tests
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
	Value   string `json:"value"`
}

const (
	caseHex    = "65f1a2b3c4d5e6f708091a2b"
	entryHex   = "65f1a2b3c4d5e6f708091a2c"
	paymentHex = "65f1a2b3c4d5e6f708091a2d"
)

func newRequest(t *testing.T, method, target string, body interface{}, vars map[string]string) *http.Request {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	env := decodeEnvelope(t, rr)
	require.True(t, env.Success, rr.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func decodeErrorDetail(t *testing.T, rr *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	env := decodeEnvelope(t, rr)
	require.False(t, env.Success)
	var d errorDetail
	require.NoError(t, json.Unmarshal(env.Error, &d), string(env.Error))
	return d
}

func duplicateKeyError(field, value string) error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Code:    11000,
		Message: `E11000 duplicate key error collection: chakshi.cases index: ` + field + `_1 dup key: { ` + field + `: "` + value + `" }`,
	}}}
}

func withVars(req *http.Request, vars map[string]string) *http.Request {
	return mux.SetURLVars(req, vars)
}

// sortOf returns the sort a handler passed to a repository Find
func sortOf(t *testing.T, opt interface{}) bson.D {
	t.Helper()
	fo, ok := opt.(*options.FindOptions)
	require.True(t, ok, "expected *options.FindOptions, got %T", opt)
	sort, ok := fo.Sort.(bson.D)
	require.True(t, ok, "expected bson.D sort, got %T", fo.Sort)
	return sort
}
