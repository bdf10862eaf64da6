package rpc

import "fmt"

// APIError is the error envelope chain nodes attach to non-2xx
// responses. Contract assertion failures surface here, with the
// assertion message buried in the innermost detail.
type APIError struct {
	// Code is the HTTP-level code the node reported in the body.
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  struct {
		// Code and Name identify the node-internal exception type.
		Code    int64            `json:"code"`
		Name    string           `json:"name"`
		What    string           `json:"what"`
		Details []APIErrorDetail `json:"details"`
	} `json:"error"`

	// Endpoint is the API path that produced the error. Not part of the
	// wire envelope; filled in by the client.
	Endpoint string `json:"-"`
}

// APIErrorDetail is one stack entry in the node's error report.
type APIErrorDetail struct {
	Message string `json:"message"`
	File    string `json:"file"`
	Line    int    `json:"line_number"`
	Method  string `json:"method"`
}

// Error renders the most specific message available: the innermost
// detail when present, since that is where assertion text lives.
func (e *APIError) Error() string {
	msg := e.Message
	if e.Detail.What != "" {
		msg = e.Detail.What
	}
	if len(e.Detail.Details) > 0 && e.Detail.Details[0].Message != "" {
		msg = e.Detail.Details[0].Message
	}
	if e.Detail.Name != "" {
		return fmt.Sprintf("chain api: %s: %s", e.Detail.Name, msg)
	}
	return fmt.Sprintf("chain api: %s", msg)
}
