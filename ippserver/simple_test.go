package ippserver

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netprint/ippd/ipp"
)

func testPrinter(t *testing.T) PrinterInfo {
	t.Helper()
	p, err := NewPrinterInfoBuilder("Test Printer").
		SupportedFormats("application/pdf", "image/pwg-raster").
		DeviceURI("ipp://localhost/printers/test").
		Build()
	require.NoError(t, err)
	return p
}

type captureSink struct {
	buf bytes.Buffer
}

func (c *captureSink) sink(job *Job) (io.WriteCloser, error) {
	return nopWriteCloser{&c.buf}, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func TestSimpleServiceGetPrinterAttributes(t *testing.T) {
	svc := NewSimpleService(testPrinter(t), nil)
	defer svc.Registry.Close()

	req := &Request{Message: ipp.NewRequest(ipp.DefaultVersion, ipp.OpGetPrinterAttributes, 1)}
	resp, err := svc.GetPrinterAttributes(req)
	require.NoError(t, err)
	assert.Equal(t, ipp.StatusOk, resp.Status)

	attrs := resp.Groups[0].Attrs
	name, ok := attrs.Get("printer-name")
	require.True(t, ok)
	assert.Equal(t, ipp.String("Test Printer"), name.Values[0].V)
}

func TestSimpleServicePrintJobCapturesDocument(t *testing.T) {
	sink := &captureSink{}
	svc := NewSimpleService(testPrinter(t), sink.sink)
	defer svc.Registry.Close()

	msg := ipp.NewRequest(ipp.DefaultVersion, ipp.OpPrintJob, 1)
	msg.Operation().Add(ipp.MakeAttribute("printer-uri", ipp.TagURI, ipp.String("ipp://localhost/printers/test")))
	msg.Operation().Add(ipp.MakeAttribute("document-format", ipp.TagMimeMediaType, ipp.String("application/pdf")))

	req := &Request{Message: msg, Document: bytes.NewReader([]byte("%PDF-1.4 fake"))}
	resp, err := svc.PrintJob(req)
	require.NoError(t, err)
	assert.Equal(t, ipp.StatusOk, resp.Status)
	assert.Equal(t, "%PDF-1.4 fake", sink.buf.String())

	job, err := svc.Registry.Get(1)
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, job.State())
}

func TestSimpleServicePrintJobRejectsUnsupportedFormat(t *testing.T) {
	svc := NewSimpleService(testPrinter(t), nil)
	defer svc.Registry.Close()

	msg := ipp.NewRequest(ipp.DefaultVersion, ipp.OpPrintJob, 1)
	msg.Operation().Add(ipp.MakeAttribute("document-format", ipp.TagMimeMediaType, ipp.String("application/unknown")))

	req := &Request{Message: msg}
	_, err := svc.PrintJob(req)
	assert.ErrorIs(t, err, ErrDocumentFormatNotSupported)
}

func TestSimpleServiceCancelJob(t *testing.T) {
	svc := NewSimpleService(testPrinter(t), nil)
	defer svc.Registry.Close()

	job := svc.Registry.Create("ipp://printer", "", "alice", "application/pdf")

	msg := ipp.NewRequest(ipp.DefaultVersion, ipp.OpCancelJob, 1)
	msg.Operation().Add(ipp.MakeAttribute("job-id", ipp.TagInteger, ipp.Integer(job.ID)))

	resp, err := svc.CancelJob(&Request{Message: msg})
	require.NoError(t, err)
	assert.Equal(t, ipp.StatusOk, resp.Status)
	assert.Equal(t, JobCanceled, job.State())
}

func TestSimpleServiceCancelJobUnknownID(t *testing.T) {
	svc := NewSimpleService(testPrinter(t), nil)
	defer svc.Registry.Close()

	msg := ipp.NewRequest(ipp.DefaultVersion, ipp.OpCancelJob, 1)
	msg.Operation().Add(ipp.MakeAttribute("job-id", ipp.TagInteger, ipp.Integer(404)))

	_, err := svc.CancelJob(&Request{Message: msg})
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSimpleServiceGetJobAttributesFiltersByRequestedName(t *testing.T) {
	svc := NewSimpleService(testPrinter(t), nil)
	defer svc.Registry.Close()

	job := svc.Registry.Create("ipp://printer", "", "alice", "application/pdf")

	msg := ipp.NewRequest(ipp.DefaultVersion, ipp.OpGetJobAttributes, 1)
	msg.Operation().Add(ipp.MakeAttribute("job-id", ipp.TagInteger, ipp.Integer(job.ID)))
	msg.Operation().Add(ipp.MakeAttribute("requested-attributes", ipp.TagKeyword, ipp.String("job-id")))

	resp, err := svc.GetJobAttributes(&Request{Message: msg})
	require.NoError(t, err)
	require.Len(t, resp.Groups, 1)
	assert.Len(t, resp.Groups[0].Attrs, 1)
	assert.Equal(t, "job-id", resp.Groups[0].Attrs[0].Name)
}

func TestSimpleServiceGetJobsDefaultsToNotCompleted(t *testing.T) {
	svc := NewSimpleService(testPrinter(t), nil)
	defer svc.Registry.Close()

	pending := svc.Registry.Create("ipp://printer", "", "alice", "application/pdf")
	done := svc.Registry.Create("ipp://printer", "", "bob", "application/pdf")
	require.NoError(t, done.Start(context.Background()))
	require.NoError(t, done.Finish(context.Background()))
	svc.Registry.MarkTerminal(done.ID)

	msg := ipp.NewRequest(ipp.DefaultVersion, ipp.OpGetJobs, 1)
	resp, err := svc.GetJobs(&Request{Message: msg})
	require.NoError(t, err)
	require.Len(t, resp.Groups, 1)
	id, ok := resp.Groups[0].Attrs.Get("job-id")
	require.True(t, ok)
	assert.Equal(t, ipp.Integer(pending.ID), id.Values[0].V)
}

func TestSimpleServiceGetJobsWhichJobsCompleted(t *testing.T) {
	svc := NewSimpleService(testPrinter(t), nil)
	defer svc.Registry.Close()

	svc.Registry.Create("ipp://printer", "", "alice", "application/pdf")
	done := svc.Registry.Create("ipp://printer", "", "bob", "application/pdf")
	require.NoError(t, done.Start(context.Background()))
	require.NoError(t, done.Finish(context.Background()))
	svc.Registry.MarkTerminal(done.ID)

	msg := ipp.NewRequest(ipp.DefaultVersion, ipp.OpGetJobs, 1)
	msg.Operation().Add(ipp.MakeAttribute("which-jobs", ipp.TagKeyword, ipp.String("completed")))

	resp, err := svc.GetJobs(&Request{Message: msg})
	require.NoError(t, err)
	require.Len(t, resp.Groups, 1)
	id, ok := resp.Groups[0].Attrs.Get("job-id")
	require.True(t, ok)
	assert.Equal(t, ipp.Integer(done.ID), id.Values[0].V)
}

func TestSimpleServiceGetJobsHonorsLimit(t *testing.T) {
	svc := NewSimpleService(testPrinter(t), nil)
	defer svc.Registry.Close()

	svc.Registry.Create("ipp://printer", "", "alice", "application/pdf")
	svc.Registry.Create("ipp://printer", "", "bob", "application/pdf")
	svc.Registry.Create("ipp://printer", "", "carol", "application/pdf")

	msg := ipp.NewRequest(ipp.DefaultVersion, ipp.OpGetJobs, 1)
	msg.Operation().Add(ipp.MakeAttribute("limit", ipp.TagInteger, ipp.Integer(2)))

	resp, err := svc.GetJobs(&Request{Message: msg})
	require.NoError(t, err)
	assert.Len(t, resp.Groups, 2)
}
