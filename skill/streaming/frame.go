package streaming

import (
	"errors"

	"github.com/BaSui01/skillbridge/skill/protocol"
)

// ErrClosed is returned by operations on a closed connection.
var ErrClosed = errors.New("streaming: connection closed")

const (
	// DefaultMaxChunkSize bounds the size of one content stream.
	DefaultMaxChunkSize = 64 * 1024
	// DefaultReadLimit is the largest message either side accepts.
	DefaultReadLimit = 4 << 20
)

type frameKind string

const (
	frameRequest  frameKind = "request"
	frameResponse frameKind = "response"
)

// frame is the JSON envelope of one websocket message.
type frame struct {
	Kind       frameKind     `json:"kind"`
	ID         string        `json:"id"`
	Verb       string        `json:"verb,omitempty"`
	Path       string        `json:"path,omitempty"`
	StatusCode int           `json:"statusCode,omitempty"`
	Streams    []streamFrame `json:"streams,omitempty"`
	Body       []byte        `json:"body,omitempty"`
}

type streamFrame struct {
	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"data"`
}

// toReceiveRequest converts a request frame into the handler envelope.
func (f *frame) toReceiveRequest() *protocol.ReceiveRequest {
	streams := make([]protocol.ContentStream, 0, len(f.Streams))
	for _, s := range f.Streams {
		streams = append(streams, &protocol.BytesStream{ContentType: s.ContentType, Data: s.Data})
	}
	return &protocol.ReceiveRequest{
		ID:      f.ID,
		Verb:    f.Verb,
		Path:    f.Path,
		Streams: streams,
	}
}

// splitBody cuts body into chunks of at most size bytes. An empty body has no streams.
func splitBody(body []byte, contentType string, size int) []streamFrame {
	if len(body) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultMaxChunkSize
	}
	out := make([]streamFrame, 0, (len(body)+size-1)/size)
	for start := 0; start < len(body); start += size {
		end := min(start+size, len(body))
		out = append(out, streamFrame{ContentType: contentType, Data: body[start:end]})
	}
	return out
}
