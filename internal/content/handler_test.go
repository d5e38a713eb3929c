package content

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landledger/internal/platform/config"
	"landledger/pkg/testutil"
)

type recordingPinner struct {
	*Client
	files []string
	docs  []string
	err   error
}

func (p *recordingPinner) PinFile(_ context.Context, filename string, r io.Reader, name string) (*PinResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	body, _ := io.ReadAll(r)
	p.files = append(p.files, filename+":"+string(body)+":"+name)
	return &PinResult{IPFSHash: "QmFile"}, nil
}

func (p *recordingPinner) PinJSON(_ context.Context, doc json.RawMessage, name string) (*PinResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.docs = append(p.docs, string(doc)+":"+name)
	return &PinResult{IPFSHash: "QmJSON"}, nil
}

func newContentRouter(p Pinner) http.Handler {
	r := chi.NewRouter()
	NewHandler(p, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func multipartRequest(t *testing.T, fields map[string]string, file string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, form.WriteField(k, v))
	}
	if file != "" {
		part, err := form.CreateFormFile("file", "deed.pdf")
		require.NoError(t, err)
		_, err = io.WriteString(part, file)
		require.NoError(t, err)
	}
	require.NoError(t, form.Close())
	req := httptest.NewRequest(http.MethodPost, "/content", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	return req
}

func TestUploadFile(t *testing.T) {
	pinner := &recordingPinner{Client: NewClient(config.ContentConfig{})}
	router := newContentRouter(pinner)

	rr := testutil.DoRequest(router, multipartRequest(t, map[string]string{"metadata": "deed"}, "scan"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "IpfsHash", "QmFile")
	assert.Equal(t, []string{"deed.pdf:scan:deed"}, pinner.files)
}

func TestUploadJSON(t *testing.T) {
	pinner := &recordingPinner{Client: NewClient(config.ContentConfig{})}
	router := newContentRouter(pinner)

	rr := testutil.DoRequest(router, multipartRequest(t, map[string]string{"jsonData": `{"a":1}`}, ""))
	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, []string{`{"a":1}:`}, pinner.docs)

	rr = testutil.DoRequest(router, multipartRequest(t, map[string]string{"jsonData": `{broken`}, ""))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}

func TestUploadErrors(t *testing.T) {
	t.Run("nothing to upload", func(t *testing.T) {
		router := newContentRouter(&recordingPinner{Client: NewClient(config.ContentConfig{})})
		rr := testutil.DoRequest(router, multipartRequest(t, map[string]string{"metadata": "x"}, ""))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})

	t.Run("not configured", func(t *testing.T) {
		router := newContentRouter(NewClient(config.ContentConfig{}))
		rr := testutil.DoRequest(router, multipartRequest(t, nil, "scan"))
		testutil.AssertStatusAndError(t, rr, http.StatusServiceUnavailable, "not_configured")
	})

	t.Run("pinata rejection", func(t *testing.T) {
		pinner := &recordingPinner{
			Client: NewClient(config.ContentConfig{}),
			err:    &UploadError{Status: http.StatusForbidden, Body: "quota exceeded"},
		}
		router := newContentRouter(pinner)
		rr := testutil.DoRequest(router, multipartRequest(t, nil, "scan"))
		testutil.AssertStatus(t, rr, http.StatusBadGateway)
		body := testutil.UnmarshalErrorResponse(t, rr)
		assert.Equal(t, "Pinata error: quota exceeded", body["error_description"])
	})

	t.Run("not multipart", func(t *testing.T) {
		router := newContentRouter(NewClient(config.ContentConfig{}))
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/content", map[string]string{"a": "b"}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func TestContentURL(t *testing.T) {
	router := newContentRouter(NewClient(config.ContentConfig{PinataGateway: "landledger.mypinata.cloud"}))

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/content/QmX/url"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "url", "https://landledger.mypinata.cloud/ipfs/QmX")
}
