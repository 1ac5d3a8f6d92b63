package client

import (
	"net/http"

	"github.com/BaSui01/skillbridge/skill/protocol"
)

func protocolRequest(r *http.Request, body []byte) *protocol.ReceiveRequest {
	return &protocol.ReceiveRequest{
		Verb:    r.Method,
		Path:    r.URL.Path,
		Streams: []protocol.ContentStream{&protocol.BytesStream{Data: body}},
	}
}
