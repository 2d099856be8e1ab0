package ippserver

import (
	"compress/gzip"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/netprint/ippd/ipp"
)

// DefaultEnvelopeCap is the default limit on how many bytes of an
// incoming request body may be consumed while decoding the IPP attribute
// envelope. It never bounds the document that follows the envelope.
const DefaultEnvelopeCap = 1 << 20 // 1 MiB

// Server is an http.Handler that speaks IPP-over-HTTP: it decodes the
// envelope of each POST body, dispatches to a Service, and encodes the
// response. It composes with any net/http-compatible mux or middleware —
// the HTTP listener itself is the caller's responsibility.
type Server struct {
	Service Service

	// EnvelopeCap bounds how many bytes of the request body may be
	// consumed while decoding the IPP attribute section; it does not
	// bound the document that follows. Zero means DefaultEnvelopeCap.
	EnvelopeCap int64

	// TLSConfig is handed to the caller's own net/http.Server; Server
	// itself never parses certificate material.
	TLSConfig *tls.Config

	// Now is used for logging timestamps; overridable in tests.
	Now func() time.Time
}

func (s *Server) envelopeCap() int64 {
	if s.EnvelopeCap > 0 {
		return s.EnvelopeCap
	}
	return DefaultEnvelopeCap
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := s.now()

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if ct := r.Header.Get("Content-Type"); ct != "" && ct != ipp.ContentType {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		return
	}

	body := r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer gz.Close()
		body = gz
	}

	msg, document, err := s.splitEnvelope(body)
	if err != nil {
		io.Copy(io.Discard, body)
		if errors.Is(err, errEnvelopeTooLarge) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	resp := s.handle(msg, document)

	w.Header().Set("Content-Type", ipp.ContentType)
	w.WriteHeader(http.StatusOK)
	if err := resp.Encode(w); err != nil {
		log.Warn().Err(err).Msg("failed to write IPP response")
	}

	log.Info().
		Str("operation", ipp.Op(msg.Code).String()).
		Str("status", ipp.Status(resp.Code).String()).
		Int32("request-id", int32(resp.RequestID)).
		Dur("duration", s.now().Sub(start)).
		Msg("ipp request handled")
}

var errEnvelopeTooLarge = errors.New("ippserver: envelope exceeds configured cap")

// capReader wraps a reader so at most n bytes can ever be read through it,
// and remembers whether a read was refused because the cap, rather than
// the underlying reader, ran out.
type capReader struct {
	r      io.Reader
	n      int64
	hitCap bool
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.n <= 0 {
		c.hitCap = true
		return 0, io.EOF
	}
	if int64(len(p)) > c.n {
		p = p[:c.n]
	}
	n, err := c.r.Read(p)
	c.n -= int64(n)
	return n, err
}

// splitEnvelope decodes the IPP attribute envelope directly off body,
// through a reader capped at the configured envelope size, and returns
// body itself as the document stream: Message.Decode never reads past
// the end-of-attributes tag, so body is left positioned exactly at the
// start of the document, however large it is. Only the envelope — never
// the document behind it — counts against the cap, so a legitimate
// multi-gigabyte Print-Job document never trips errEnvelopeTooLarge.
func (s *Server) splitEnvelope(body io.Reader) (*ipp.Message, io.Reader, error) {
	cr := &capReader{r: body, n: s.envelopeCap()}

	var msg ipp.Message
	if err := msg.Decode(cr); err != nil {
		if cr.hitCap {
			return nil, nil, errEnvelopeTooLarge
		}
		return nil, nil, err
	}

	return &msg, body, nil
}

// handle dispatches msg to s.Service and always returns a well-formed
// response message, translating any dispatch error into the
// corresponding IPP status.
func (s *Server) handle(msg *ipp.Message, document io.Reader) *ipp.Message {
	req := &Request{Message: msg, Document: document}

	result, err := dispatch(s.Service, req)

	resp := ipp.NewResponse(ipp.DefaultVersion, ipp.StatusOk, msg.RequestID)
	resp.Operation().Add(ipp.MakeAttribute("attributes-charset", ipp.TagCharset, ipp.String("utf-8")))
	resp.Operation().Add(ipp.MakeAttribute("attributes-natural-language", ipp.TagNaturalLanguage, ipp.String("en")))

	if err != nil {
		io.Copy(io.Discard, document)
		resp.Code = ipp.Code(StatusOf(err))
		return resp
	}

	resp.Code = ipp.Code(result.Status)
	resp.Groups = append(resp.Groups, result.Groups...)
	return resp
}

// NewHTTPServer wraps s in a *http.Server bound to addr, configured with
// s.TLSConfig. This is a convenience for the common case; callers that
// need custom timeouts or a shared mux should construct their own
// http.Server around Server instead.
func NewHTTPServer(addr string, s *Server) *http.Server {
	return &http.Server{
		Addr:      addr,
		Handler:   s,
		TLSConfig: s.TLSConfig,
	}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
