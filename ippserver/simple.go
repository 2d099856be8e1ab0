package ippserver

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/netprint/ippd/ipp"
)

// DocumentSink opens a writable destination for job's incoming document.
// SimpleService closes the returned WriteCloser once it stops copying the
// document stream, whether the copy succeeded or failed; a failed copy
// also moves the job to aborted.
type DocumentSink func(job *Job) (io.WriteCloser, error)

// operationsSupported lists the operation codes SimpleService answers
// in operations-supported.
var operationsSupported = []ipp.Op{
	ipp.OpPrintJob,
	ipp.OpValidateJob,
	ipp.OpCreateJob,
	ipp.OpSendDocument,
	ipp.OpGetJobs,
	ipp.OpGetJobAttributes,
	ipp.OpCancelJob,
	ipp.OpGetPrinterAttributes,
}

// printerDescriptionAttrs is the canonical-subset membership list for
// the "printer-description" requested-attributes keyword.
var printerDescriptionAttrs = map[string]bool{
	"printer-uri-supported": true, "uri-authentication-supported": true,
	"uri-security-supported": true, "printer-name": true, "printer-state": true,
	"printer-state-reasons": true, "ipp-versions-supported": true,
	"operations-supported": true, "charset-configured": true,
	"charset-supported": true, "natural-language-configured": true,
	"generated-natural-language-supported": true, "document-format-supported": true,
	"document-format-default": true, "printer-is-accepting-jobs": true,
	"queued-job-count": true, "printer-uuid": true,
}

// jobDescriptionAttrs is the canonical-subset membership list for the
// "job-description" requested-attributes keyword.
var jobDescriptionAttrs = map[string]bool{
	"job-id": true, "job-uri": true, "job-state": true, "job-state-reasons": true,
	"job-name": true, "job-originating-user-name": true, "job-printer-uri": true,
}

// SimpleService is the reference "pretend to be a printer that captures
// documents" implementation: Print-Job drains its document into a
// caller-provided sink and completes synchronously; Get-Printer-Attributes
// projects PrinterInfo into the standard keyword set.
type SimpleService struct {
	UnimplementedService

	Printer  PrinterInfo
	Registry *Registry
	Sink     DocumentSink
}

// NewSimpleService builds a SimpleService backed by its own Registry.
func NewSimpleService(printer PrinterInfo, sink DocumentSink) *SimpleService {
	return &SimpleService{
		Printer:  printer,
		Registry: NewRegistry(DefaultRetention),
		Sink:     sink,
	}
}

func (s *SimpleService) ValidateJob(req *Request) (*Response, error) {
	op := *req.Message.Operation()
	if format := attrString(op, "document-format", ""); format != "" && !s.Printer.SupportsFormat(format) {
		return nil, ErrDocumentFormatNotSupported
	}

	return &Response{Status: ipp.StatusOk}, nil
}

// PrintJob drains the request's document stream into s.Sink, synchronously
// completing the job before responding, per spec.
func (s *SimpleService) PrintJob(req *Request) (*Response, error) {
	op := *req.Message.Operation()
	format := attrString(op, "document-format", s.Printer.DocumentFormatDefault)
	user := attrString(op, "requesting-user-name", "")
	printerURI := attrString(op, "printer-uri", "")

	if format != "" && !s.Printer.SupportsFormat(format) {
		return nil, ErrDocumentFormatNotSupported
	}

	job := s.Registry.Create(printerURI, "", user, format)
	job.URI = printerURI + "/jobs/" + strconv.Itoa(int(job.ID))

	ctx := context.Background()
	if err := job.Start(ctx); err != nil {
		return nil, NewStatusError(ipp.StatusErrorInternal, err)
	}

	if err := s.capture(job, req.Document); err != nil {
		_ = job.Fail(ctx)
		s.Registry.MarkTerminal(job.ID)
		log.Warn().Int32("job-id", job.ID).Err(err).Msg("document capture failed")
		return nil, NewStatusError(ipp.StatusErrorInternal, err)
	}

	if err := job.Finish(ctx); err != nil {
		return nil, NewStatusError(ipp.StatusErrorInternal, err)
	}
	s.Registry.MarkTerminal(job.ID)

	return &Response{Status: ipp.StatusOk, Groups: jobGroups(job)}, nil
}

func (s *SimpleService) capture(job *Job, document io.Reader) error {
	if s.Sink == nil || document == nil {
		return nil
	}

	w, err := s.Sink(job)
	if err != nil {
		return err
	}
	defer w.Close()

	_, err = io.Copy(w, document)
	return err
}

func (s *SimpleService) CreateJob(req *Request) (*Response, error) {
	op := *req.Message.Operation()
	format := attrString(op, "document-format", s.Printer.DocumentFormatDefault)
	user := attrString(op, "requesting-user-name", "")
	printerURI := attrString(op, "printer-uri", "")

	if format != "" && !s.Printer.SupportsFormat(format) {
		return nil, ErrDocumentFormatNotSupported
	}

	job := s.Registry.Create(printerURI, "", user, format)
	job.URI = printerURI + "/jobs/" + strconv.Itoa(int(job.ID))

	return &Response{Status: ipp.StatusOk, Groups: jobGroups(job)}, nil
}

func (s *SimpleService) SendDocument(req *Request) (*Response, error) {
	op := *req.Message.Operation()
	id, ok := jobID(op)
	if !ok {
		return nil, NewStatusError(ipp.StatusErrorBadRequest, errors.New("missing job-id"))
	}

	job, err := s.Registry.Get(id)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if job.State() == JobPending {
		if err := job.Start(ctx); err != nil {
			return nil, NewStatusError(ipp.StatusErrorInternal, err)
		}
	}

	if err := s.capture(job, req.Document); err != nil {
		_ = job.Fail(ctx)
		s.Registry.MarkTerminal(job.ID)
		return nil, NewStatusError(ipp.StatusErrorInternal, err)
	}

	if err := job.Finish(ctx); err != nil {
		return nil, NewStatusError(ipp.StatusErrorInternal, err)
	}
	s.Registry.MarkTerminal(job.ID)

	return &Response{Status: ipp.StatusOk, Groups: jobGroups(job)}, nil
}

// GetJobs answers Get-Jobs, honoring the which-jobs (default
// "not-completed") and limit operation attributes (RFC 8011 §3.2.6.1).
func (s *SimpleService) GetJobs(req *Request) (*Response, error) {
	op := *req.Message.Operation()
	whichJobs := attrString(op, "which-jobs", "not-completed")
	limit := attrInt(op, "limit", 0)

	var groups ipp.AttributeGroups
	for _, job := range s.Registry.All() {
		if whichJobs == "completed" && !job.Terminal() {
			continue
		}
		if whichJobs == "not-completed" && job.Terminal() {
			continue
		}
		groups = append(groups, ipp.AttributeGroup{Tag: ipp.TagJobGroup, Attrs: jobAttrs(job)})
		if limit > 0 && len(groups) >= limit {
			break
		}
	}
	return &Response{Status: ipp.StatusOk, Groups: groups}, nil
}

func (s *SimpleService) GetJobAttributes(req *Request) (*Response, error) {
	op := *req.Message.Operation()
	id, ok := jobID(op)
	if !ok {
		return nil, NewStatusError(ipp.StatusErrorBadRequest, errors.New("missing job-id"))
	}

	job, err := s.Registry.Get(id)
	if err != nil {
		return nil, err
	}

	requested := RequestedAttributes(op)
	attrs := FilterAttributes(jobAttrs(job), requested, func(name string) bool {
		return jobDescriptionAttrs[name]
	})

	return &Response{
		Status: ipp.StatusOk,
		Groups: ipp.AttributeGroups{{Tag: ipp.TagJobGroup, Attrs: attrs}},
	}, nil
}

func (s *SimpleService) CancelJob(req *Request) (*Response, error) {
	op := *req.Message.Operation()
	id, ok := jobID(op)
	if !ok {
		return nil, NewStatusError(ipp.StatusErrorBadRequest, errors.New("missing job-id"))
	}

	job, err := s.Registry.Get(id)
	if err != nil {
		return nil, err
	}

	if err := job.Cancel(context.Background()); err != nil {
		return nil, NewStatusError(ipp.StatusErrorNotPossible, err)
	}
	s.Registry.MarkTerminal(job.ID)

	return &Response{Status: ipp.StatusOk}, nil
}

// GetPrinterAttributes projects PrinterInfo into the standard keyword set.
func (s *SimpleService) GetPrinterAttributes(req *Request) (*Response, error) {
	op := *req.Message.Operation()
	requested := RequestedAttributes(op)

	attrs := printerAttrs(s.Printer, s.Registry, operationsSupported)
	attrs = FilterAttributes(attrs, requested, func(name string) bool {
		return printerDescriptionAttrs[name]
	})

	return &Response{
		Status: ipp.StatusOk,
		Groups: ipp.AttributeGroups{{Tag: ipp.TagPrinterGroup, Attrs: attrs}},
	}, nil
}

func printerAttrs(p PrinterInfo, reg *Registry, ops []ipp.Op) ipp.Attributes {
	pending := 0
	for _, job := range reg.All() {
		if job.State() == JobPending || job.State() == JobProcessing {
			pending++
		}
	}

	opsAttr := ipp.MakeAttribute("operations-supported", ipp.TagEnum, ipp.Integer(ops[0]))
	for _, op := range ops[1:] {
		opsAttr.AddValue(ipp.TagEnum, ipp.Integer(op))
	}

	formatsAttr := ipp.MakeAttribute("document-format-supported", ipp.TagMimeMediaType, ipp.String(p.SupportedFormats[0]))
	for _, f := range p.SupportedFormats[1:] {
		formatsAttr.AddValue(ipp.TagMimeMediaType, ipp.String(f))
	}

	return ipp.Attributes{
		ipp.MakeAttribute("printer-uri-supported", ipp.TagURI, ipp.String(p.DeviceURI)),
		ipp.MakeAttribute("uri-authentication-supported", ipp.TagKeyword, ipp.String(p.URIAuthenticationSupported)),
		ipp.MakeAttribute("uri-security-supported", ipp.TagKeyword, ipp.String(p.URISecuritySupported)),
		ipp.MakeAttribute("printer-name", ipp.TagNameWithoutLang, ipp.String(p.Name)),
		ipp.MakeAttribute("printer-state", ipp.TagEnum, ipp.Integer(3)),
		ipp.MakeAttribute("printer-state-reasons", ipp.TagKeyword, ipp.String("none")),
		withValues(ipp.MakeAttribute("ipp-versions-supported", ipp.TagKeyword, ipp.String("1.1")), ipp.TagKeyword, ipp.String("2.0")),
		opsAttr,
		ipp.MakeAttribute("charset-configured", ipp.TagCharset, ipp.String("utf-8")),
		ipp.MakeAttribute("charset-supported", ipp.TagCharset, ipp.String("utf-8")),
		ipp.MakeAttribute("natural-language-configured", ipp.TagNaturalLanguage, ipp.String("en")),
		ipp.MakeAttribute("generated-natural-language-supported", ipp.TagNaturalLanguage, ipp.String("en")),
		formatsAttr,
		ipp.MakeAttribute("document-format-default", ipp.TagMimeMediaType, ipp.String(p.DocumentFormatDefault)),
		ipp.MakeAttribute("printer-is-accepting-jobs", ipp.TagBoolean, ipp.Boolean(true)),
		ipp.MakeAttribute("queued-job-count", ipp.TagInteger, ipp.Integer(pending)),
		ipp.MakeAttribute("printer-uuid", ipp.TagURI, ipp.String(p.URN())),
	}
}

func withValues(attr ipp.Attribute, tag ipp.Tag, values ...ipp.Value) ipp.Attribute {
	for _, v := range values {
		attr.AddValue(tag, v)
	}
	return attr
}

func jobAttrs(job *Job) ipp.Attributes {
	return ipp.Attributes{
		ipp.MakeAttribute("job-id", ipp.TagInteger, ipp.Integer(job.ID)),
		ipp.MakeAttribute("job-uri", ipp.TagURI, ipp.String(job.URI)),
		ipp.MakeAttribute("job-printer-uri", ipp.TagURI, ipp.String(job.PrinterURI)),
		ipp.MakeAttribute("job-state", ipp.TagEnum, ipp.Integer(job.State())),
		ipp.MakeAttribute("job-state-reasons", ipp.TagKeyword, ipp.String(job.StateReasons[0])),
		ipp.MakeAttribute("job-originating-user-name", ipp.TagNameWithoutLang, ipp.String(job.OriginatingUser)),
	}
}

func jobGroups(job *Job) ipp.AttributeGroups {
	return ipp.AttributeGroups{{Tag: ipp.TagJobGroup, Attrs: jobAttrs(job)}}
}

func attrString(attrs ipp.Attributes, name, fallback string) string {
	attr, ok := attrs.Get(name)
	if !ok || len(attr.Values) == 0 {
		return fallback
	}
	s, ok := attr.Values[0].V.(ipp.String)
	if !ok {
		return fallback
	}
	return string(s)
}

func attrInt(attrs ipp.Attributes, name string, fallback int) int {
	attr, ok := attrs.Get(name)
	if !ok || len(attr.Values) == 0 {
		return fallback
	}
	i, ok := attr.Values[0].V.(ipp.Integer)
	if !ok {
		return fallback
	}
	return int(i)
}

func jobID(attrs ipp.Attributes) (int32, bool) {
	attr, ok := attrs.Get("job-id")
	if !ok || len(attr.Values) == 0 {
		return 0, false
	}
	i, ok := attr.Values[0].V.(ipp.Integer)
	if !ok {
		return 0, false
	}
	return int32(i), true
}
