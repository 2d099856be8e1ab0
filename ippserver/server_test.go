package ippserver

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netprint/ippd/ipp"
)

func newTestServer(t *testing.T) (*Server, *SimpleService) {
	t.Helper()
	svc := NewSimpleService(testPrinter(t), func(job *Job) (io.WriteCloser, error) {
		return nopWriteCloser{io.Discard}, nil
	})
	t.Cleanup(func() { svc.Registry.Close() })
	return &Server{Service: svc}, svc
}

func postIPP(t *testing.T, srv *Server, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", ipp.ContentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestServerGetPrinterAttributesDefault(t *testing.T) {
	srv, _ := newTestServer(t)

	msg := ipp.NewRequest(ipp.DefaultVersion, ipp.OpGetPrinterAttributes, 1)
	body, err := msg.EncodeBytes()
	require.NoError(t, err)

	rec := postIPP(t, srv, body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ipp.ContentType, rec.Header().Get("Content-Type"))

	var resp ipp.Message
	require.NoError(t, resp.Decode(rec.Body))
	assert.Equal(t, ipp.Code(ipp.StatusOk), resp.Code)
	assert.Equal(t, int32(1), resp.RequestID)

	printerGroup, ok := resp.Groups.First(ipp.TagPrinterGroup)
	require.True(t, ok)
	name, ok := printerGroup.Attrs.Get("printer-name")
	require.True(t, ok)
	assert.Equal(t, ipp.String("Test Printer"), name.Values[0].V)
}

func TestServerPrintJobReturnsSuccessfulOk(t *testing.T) {
	srv, _ := newTestServer(t)

	msg := ipp.NewRequest(ipp.DefaultVersion, ipp.OpPrintJob, 2)
	msg.Operation().Add(ipp.MakeAttribute("document-format", ipp.TagMimeMediaType, ipp.String("application/pdf")))
	envelope, err := msg.EncodeBytes()
	require.NoError(t, err)

	body := append(envelope, []byte("%PDF-1.4 one byte document")...)
	rec := postIPP(t, srv, body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ipp.Message
	require.NoError(t, resp.Decode(rec.Body))
	assert.Equal(t, ipp.Code(ipp.StatusOk), resp.Code)
}

func TestServerUnknownOperationReturnsNotSupported(t *testing.T) {
	srv, _ := newTestServer(t)

	msg := ipp.NewRequest(ipp.DefaultVersion, ipp.Op(0x9999), 3)
	body, err := msg.EncodeBytes()
	require.NoError(t, err)

	rec := postIPP(t, srv, body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ipp.Message
	require.NoError(t, resp.Decode(rec.Body))
	assert.Equal(t, ipp.Code(ipp.StatusErrorOperationNotSupported), resp.Code)
}

func TestServerGzipCompressedRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	msg := ipp.NewRequest(ipp.DefaultVersion, ipp.OpGetPrinterAttributes, 4)
	raw, err := msg.EncodeBytes()
	require.NoError(t, err)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	rec := postIPP(t, srv, buf.Bytes(), map[string]string{"Content-Encoding": "gzip"})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ipp.Message
	require.NoError(t, resp.Decode(rec.Body))
	assert.Equal(t, ipp.Code(ipp.StatusOk), resp.Code)
}

func TestServerMalformedEnvelopeReturnsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postIPP(t, srv, []byte{0x01, 0x01, 0x00}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServerOversizedEnvelopeReturnsTooLarge(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.EnvelopeCap = 16

	msg := ipp.NewRequest(ipp.DefaultVersion, ipp.OpGetPrinterAttributes, 5)
	msg.Operation().Add(ipp.MakeAttribute("printer-uri", ipp.TagURI, ipp.String("ipp://localhost/printers/test-with-a-long-name")))
	body, err := msg.EncodeBytes()
	require.NoError(t, err)
	require.Greater(t, len(body), 16)

	rec := postIPP(t, srv, body, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServerPrintJobDocumentExceedingEnvelopeCapSucceeds(t *testing.T) {
	var captured bytes.Buffer
	svc := NewSimpleService(testPrinter(t), func(job *Job) (io.WriteCloser, error) {
		return nopWriteCloser{&captured}, nil
	})
	t.Cleanup(func() { svc.Registry.Close() })
	srv := &Server{Service: svc, EnvelopeCap: 256}

	msg := ipp.NewRequest(ipp.DefaultVersion, ipp.OpPrintJob, 6)
	msg.Operation().Add(ipp.MakeAttribute("document-format", ipp.TagMimeMediaType, ipp.String("application/pdf")))
	envelope, err := msg.EncodeBytes()
	require.NoError(t, err)
	require.Less(t, len(envelope), 256)

	document := bytes.Repeat([]byte("x"), 4*256)
	body := append(envelope, document...)

	rec := postIPP(t, srv, body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ipp.Message
	require.NoError(t, resp.Decode(rec.Body))
	assert.Equal(t, ipp.Code(ipp.StatusOk), resp.Code)
	assert.Equal(t, document, captured.Bytes())
}

func TestServerWrongMethodReturnsMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerWrongContentTypeReturnsUnsupportedMediaType(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("not ipp")))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
