// Package apierr defines the closed error taxonomy returned by the Coze client and the
// classification of HTTP status codes and error envelopes into it.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind discriminates Error values.
type Kind int

const (
	KindAPI Kind = iota
	KindConnection
	KindBadRequest
	KindAuthentication
	KindPermissionDenied
	KindNotFound
	KindRateLimit
	KindTimeout
	KindGateway
	KindInternalServer
	KindJSONParse
	KindValidation
)

var kindNames = map[Kind]string{
	KindAPI:              "api_error",
	KindConnection:       "connection_error",
	KindBadRequest:       "bad_request",
	KindAuthentication:   "authentication_error",
	KindPermissionDenied: "permission_denied",
	KindNotFound:         "not_found",
	KindRateLimit:        "rate_limit",
	KindTimeout:          "timeout",
	KindGateway:          "gateway_error",
	KindInternalServer:   "internal_server_error",
	KindJSONParse:        "json_parse_error",
	KindValidation:       "validation_error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Envelope codes that classify independently of the HTTP status.
const (
	CodeBadRequest       = 4000
	CodeRateLimit        = 4013
	CodeAuthentication   = 4100
	CodePermissionDenied = 4101
	CodeNotFound         = 4200
)

// LogIDHeader carries the server-side trace id of a call.
const LogIDHeader = "X-Tt-Logid"

// Error is the single error type surfaced by the client. Kind selects the variant,
// the remaining fields are shared by all variants and may be empty.
type Error struct {
	Kind Kind
	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int
	// Code is the envelope code, 0 when absent.
	Code    int
	Message string
	Detail  string
	LogID   string
	HelpDoc string
	// Raw is the offending response text for JSONParse errors.
	Raw string
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("coze ")
	b.WriteString(e.Kind.String())
	if msg := e.composeMessage(); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Kind == KindJSONParse && e.Raw != "" {
		b.WriteString(" (raw: ")
		b.WriteString(e.Raw)
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the HTTP status code, 0 when no response was received.
func (e *Error) HTTPStatus() int { return e.StatusCode }

// Is matches another *Error by Kind, so errors.Is(err, &Error{Kind: KindRateLimit}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return t.Kind == e.Kind && t.StatusCode == 0 && t.Code == 0 && t.Message == ""
}

func (e *Error) composeMessage() string {
	if e.Kind == KindValidation || e.Kind == KindJSONParse {
		return e.Message
	}
	if e.Kind == KindConnection && e.StatusCode == 0 && e.Code == 0 && e.Message == "" {
		return ""
	}
	parts := make([]string, 0, 5)
	if e.Code != 0 {
		parts = append(parts, "code: "+strconv.Itoa(e.Code))
	}
	if e.Message != "" {
		parts = append(parts, "msg: "+e.Message)
	}
	if e.Detail != "" && e.Detail != e.Message {
		parts = append(parts, "detail: "+e.Detail)
	}
	if e.LogID != "" {
		parts = append(parts, "logid: "+e.LogID)
	}
	if e.HelpDoc != "" {
		parts = append(parts, "help_doc: "+e.HelpDoc)
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("http status code: %d (no body)", e.StatusCode)
	}
	return "(no status code or body)"
}

// Classify maps an HTTP status and an optional error body into the taxonomy.
// A zero status means no response was received. header may be nil.
func Classify(status int, body []byte, header http.Header) *Error {
	e := &Error{StatusCode: status}
	if len(body) > 0 && gjson.ValidBytes(body) {
		root := gjson.ParseBytes(body)
		e.Code = int(root.Get("code").Int())
		e.Message = root.Get("msg").String()
		if e.Code == 0 {
			// workflow envelopes
			e.Code = int(root.Get("error_code").Int())
		}
		if e.Message == "" {
			e.Message = root.Get("error_message").String()
		}
		errObj := root.Get("error")
		if errObj.IsObject() {
			e.LogID = errObj.Get("logid").String()
			e.Detail = errObj.Get("detail").String()
			e.HelpDoc = errObj.Get("help_doc").String()
			if e.HelpDoc == "" {
				e.HelpDoc = errObj.Get("helpDoc").String()
			}
		}
		if e.LogID == "" {
			e.LogID = root.Get("detail.logid").String()
		}
	}
	if e.LogID == "" && header != nil {
		e.LogID = header.Get(LogIDHeader)
	}
	e.Kind = kindFor(status, e.Code)
	return e
}

func kindFor(status, code int) Kind {
	switch {
	case status == 0:
		return KindConnection
	case status == http.StatusBadRequest || code == CodeBadRequest:
		return KindBadRequest
	case status == http.StatusUnauthorized || code == CodeAuthentication:
		return KindAuthentication
	case status == http.StatusForbidden || code == CodePermissionDenied:
		return KindPermissionDenied
	case status == http.StatusNotFound || code == CodeNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests || code == CodeRateLimit:
		return KindRateLimit
	case status == http.StatusRequestTimeout:
		return KindTimeout
	case status == http.StatusBadGateway:
		return KindGateway
	case status >= http.StatusInternalServerError:
		return KindInternalServer
	default:
		return KindAPI
	}
}

// Connection wraps a transport failure that produced no response.
func Connection(err error) *Error {
	return &Error{Kind: KindConnection, Err: err}
}

// Validation reports a caller argument that failed a precondition.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// JSONParse reports a body that did not match the expected schema.
func JSONParse(raw []byte, err error) *Error {
	return &Error{Kind: KindJSONParse, Message: "failed to decode response", Raw: string(raw), Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries an *Error of kind k.
func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}
