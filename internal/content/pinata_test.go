package content

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landledger/internal/platform/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.ContentConfig{
		PinataAPIKey:    "key",
		PinataSecretKey: "secret",
		PinataAPIURL:    srv.URL,
	})
}

func TestPinJSON(t *testing.T) {
	var got struct {
		Content  map[string]string `json:"pinataContent"`
		Metadata map[string]string `json:"pinataMetadata"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("pinata_api_key"))
		assert.Equal(t, "secret", r.Header.Get("pinata_secret_api_key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"IpfsHash":"QmJSON","PinSize":42,"Timestamp":"2026-01-01T00:00:00Z"}`)
	})

	res, err := client.PinJSON(context.Background(), json.RawMessage(`{"propertyId":"PROP004"}`), "")
	require.NoError(t, err)
	assert.Equal(t, "QmJSON", res.IPFSHash)
	assert.Equal(t, int64(42), res.PinSize)
	assert.Equal(t, "PROP004", got.Content["propertyId"])
	assert.Equal(t, "property-metadata", got.Metadata["name"])
}

func TestPinFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "deed.pdf", header.Filename)
		assert.Equal(t, "scan", string(body))
		assert.JSONEq(t, `{"name":"7/12 extract"}`, r.FormValue("pinataMetadata"))
		_, _ = io.WriteString(w, `{"IpfsHash":"QmFile"}`)
	})

	res, err := client.PinFile(context.Background(), "deed.pdf", strings.NewReader("scan"), "7/12 extract")
	require.NoError(t, err)
	assert.Equal(t, "QmFile", res.IPFSHash)
}

func TestPinFailures(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		client := NewClient(config.ContentConfig{})
		_, err := client.PinJSON(context.Background(), json.RawMessage(`{}`), "x")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("upstream rejection", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid key", http.StatusUnauthorized)
		})
		_, err := client.PinJSON(context.Background(), json.RawMessage(`{}`), "x")
		require.ErrorIs(t, err, ErrUploadFailed)
		var upload *UploadError
		require.ErrorAs(t, err, &upload)
		assert.Equal(t, http.StatusUnauthorized, upload.Status)
		assert.Equal(t, "invalid key", upload.Body)
	})
}

func TestURL(t *testing.T) {
	tests := []struct {
		gateway string
		want    string
	}{
		{"", "https://gateway.pinata.cloud/ipfs/QmX"},
		{"landledger.mypinata.cloud", "https://landledger.mypinata.cloud/ipfs/QmX"},
		{"tok3n", "https://gateway.pinata.cloud/ipfs/QmX?pinataGatewayToken=tok3n"},
	}
	for _, tt := range tests {
		t.Run(tt.gateway, func(t *testing.T) {
			c := NewClient(config.ContentConfig{PinataGateway: tt.gateway})
			assert.Equal(t, tt.want, c.URL("QmX"))
		})
	}
}

func TestFetchJSON(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ipfs/QmMeta", r.URL.Path)
		_, _ = io.WriteString(w, `{"location":"Pune"}`)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.ContentConfig{PinataGateway: srv.Listener.Addr().String()}, WithHTTPClient(srv.Client()))

	var doc map[string]string
	require.NoError(t, client.FetchJSON(context.Background(), "QmMeta", &doc))
	assert.Equal(t, "Pune", doc["location"])
}
