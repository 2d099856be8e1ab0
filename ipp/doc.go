/*
Package ipp implements the core IPP (Internet Printing Protocol) wire
format, as defined by RFC 8010: attribute values, attributes, attribute
groups, and the request/response message envelope.

It does not implement any IPP operation semantics ("print a document",
"cancel a job", and so on) — see the ippserver package for that. Its
scope is limited to the binary encoding and decoding of IPP messages.

A request and a response share the same Message representation; the only
difference is that Message.Code holds an Op in a request and a Status in
a response.

Example:

	m := ipp.NewRequest(ipp.DefaultVersion, ipp.OpGetPrinterAttributes, 1)
	m.Operation().Add(ipp.MakeAttribute("attributes-charset",
		ipp.TagCharset, ipp.String("utf-8")))
	m.Operation().Add(ipp.MakeAttribute("attributes-natural-language",
		ipp.TagNaturalLanguage, ipp.String("en")))
	m.Operation().Add(ipp.MakeAttribute("printer-uri",
		ipp.TagURI, ipp.String(uri)))

	body, err := m.EncodeBytes()
	if err != nil {
		// ...
	}

	resp, err := http.Post(uri, ipp.ContentType, bytes.NewReader(body))
	// ...

	var respMsg ipp.Message
	err = respMsg.Decode(resp.Body)
*/
package ipp

// ContentType is the media type IPP requires for both requests and
// responses carried over HTTP.
const ContentType = "application/ipp"
