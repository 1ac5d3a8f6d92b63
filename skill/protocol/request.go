package protocol

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// ContentStream is one chunk of a request body. Chunks are decoded to text
// independently and concatenated in order.
type ContentStream interface {
	ReadString(ctx context.Context) (string, error)
}

// BytesStream is an in-memory content stream.
type BytesStream struct {
	ContentType string
	Data        []byte
}

// ReadString implements ContentStream.
func (s *BytesStream) ReadString(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return string(s.Data), nil
}

// ReaderStream reads a content stream from an io.Reader.
type ReaderStream struct {
	R io.Reader
}

// ReadString implements ContentStream.
func (s *ReaderStream) ReadString(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(s.R)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// NewJSONStream marshals v into a single content stream.
func NewJSONStream(v any) (*BytesStream, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &BytesStream{ContentType: "application/json", Data: data}, nil
}

// ReceiveRequest is an inbound request envelope.
type ReceiveRequest struct {
	ID      string
	Verb    string
	Path    string
	Streams []ContentStream
}

// Response is the envelope sent back over the transport.
type Response struct {
	StatusCode int
	Body       []byte
}

// NewResponse creates an empty-bodied response.
func NewResponse(status int) *Response {
	return &Response{StatusCode: status}
}

// NotFound 返回 404 响应.
func NotFound() *Response { return NewResponse(http.StatusNotFound) }

// InternalServerError 返回 500 响应.
func InternalServerError() *Response { return NewResponse(http.StatusInternalServerError) }

// OK 返回 200 响应，body 为 v 的 JSON 编码；v 为 nil 时 body 为空.
func OK(v any) (*Response, error) {
	resp := NewResponse(http.StatusOK)
	if v == nil {
		return resp, nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	resp.Body = body
	return resp, nil
}

// IsSuccess reports whether the status is in 200-299.
func (r *Response) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode <= 299
}

// RequestHandler processes inbound requests. Implementations never return nil.
type RequestHandler interface {
	ProcessRequest(ctx context.Context, req *ReceiveRequest) *Response
}

// RouteMatcher is implemented by handlers that can report whether a request
// would be routed, before its body is inspected.
type RouteMatcher interface {
	Matches(verb, path string) bool
}

// RequestHandlerFunc adapts a function to RequestHandler.
type RequestHandlerFunc func(ctx context.Context, req *ReceiveRequest) *Response

// ProcessRequest implements RequestHandler.
func (f RequestHandlerFunc) ProcessRequest(ctx context.Context, req *ReceiveRequest) *Response {
	return f(ctx, req)
}
