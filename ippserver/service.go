package ippserver

import (
	"io"

	"github.com/netprint/ippd/ipp"
)

// Request bundles a decoded IPP message with the document-data stream
// that may trail it. The HTTP adapter sets Document to the rest of the
// request body for every operation; it is empty when the client sent no
// document data.
type Request struct {
	Message  *ipp.Message
	Document io.Reader
}

// Response is what a Service handler hands back to the adapter: the
// status to report, and the attribute groups (job/printer/unsupported)
// to attach after the operation group the adapter builds automatically.
type Response struct {
	Status ipp.Status
	Groups ipp.AttributeGroups
}

// Service is the polymorphic dispatch surface: one method per IPP
// operation this library understands. An implementation need not embed
// every method directly — embedding UnimplementedService and overriding
// only the supported subset is the common pattern.
type Service interface {
	PrintJob(req *Request) (*Response, error)
	ValidateJob(req *Request) (*Response, error)
	CreateJob(req *Request) (*Response, error)
	SendDocument(req *Request) (*Response, error)
	GetJobs(req *Request) (*Response, error)
	GetJobAttributes(req *Request) (*Response, error)
	CancelJob(req *Request) (*Response, error)
	GetPrinterAttributes(req *Request) (*Response, error)
}

// UnimplementedService answers every operation with
// server-error-operation-not-supported. Embed it in a partial Service
// implementation to get that behavior for anything you don't override.
type UnimplementedService struct{}

func (UnimplementedService) notSupported() (*Response, error) {
	return nil, ErrOperationNotSupported
}

func (s UnimplementedService) PrintJob(*Request) (*Response, error)     { return s.notSupported() }
func (s UnimplementedService) ValidateJob(*Request) (*Response, error)  { return s.notSupported() }
func (s UnimplementedService) CreateJob(*Request) (*Response, error)    { return s.notSupported() }
func (s UnimplementedService) SendDocument(*Request) (*Response, error) { return s.notSupported() }
func (s UnimplementedService) GetJobs(*Request) (*Response, error)      { return s.notSupported() }
func (s UnimplementedService) GetJobAttributes(*Request) (*Response, error) {
	return s.notSupported()
}
func (s UnimplementedService) CancelJob(*Request) (*Response, error) { return s.notSupported() }
func (s UnimplementedService) GetPrinterAttributes(*Request) (*Response, error) {
	return s.notSupported()
}

// dispatch routes req to the Service method matching its operation code.
func dispatch(svc Service, req *Request) (*Response, error) {
	switch ipp.Op(req.Message.Code) {
	case ipp.OpPrintJob:
		return svc.PrintJob(req)
	case ipp.OpValidateJob:
		return svc.ValidateJob(req)
	case ipp.OpCreateJob:
		return svc.CreateJob(req)
	case ipp.OpSendDocument:
		return svc.SendDocument(req)
	case ipp.OpGetJobs:
		return svc.GetJobs(req)
	case ipp.OpGetJobAttributes:
		return svc.GetJobAttributes(req)
	case ipp.OpCancelJob:
		return svc.CancelJob(req)
	case ipp.OpGetPrinterAttributes:
		return svc.GetPrinterAttributes(req)
	default:
		return nil, ErrOperationNotSupported
	}
}

// RequestedAttributes extracts the requested-attributes operation
// attribute as a set of keywords, or nil if absent (meaning "all").
func RequestedAttributes(op ipp.Attributes) map[string]bool {
	attr, ok := op.Get("requested-attributes")
	if !ok {
		return nil
	}

	set := make(map[string]bool, len(attr.Values))
	for _, v := range attr.Values {
		if s, ok := v.V.(ipp.String); ok {
			set[string(s)] = true
		}
	}
	return set
}

// FilterAttributes returns the subset of attrs that requested selects.
// A nil requested (no requested-attributes attribute given) or a
// requested set containing "all" returns attrs unchanged. The
// "printer-description" and "job-description" keywords are expanded via
// describedSubset, the canonical-subset membership test the caller
// supplies for its own attribute set.
func FilterAttributes(attrs ipp.Attributes, requested map[string]bool, describedSubset func(name string) bool) ipp.Attributes {
	if requested == nil || requested["all"] {
		return attrs
	}

	wantDescription := requested["printer-description"] || requested["job-description"]

	out := make(ipp.Attributes, 0, len(attrs))
	for _, attr := range attrs {
		if requested[attr.Name] {
			out = append(out, attr)
			continue
		}
		if wantDescription && describedSubset != nil && describedSubset(attr.Name) {
			out = append(out, attr)
		}
	}
	return out
}
