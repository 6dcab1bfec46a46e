package pubsub

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tbonfort/be-big-data/internal/domain"
)

// PushEnvelope is the body of a Pub/Sub push delivery.
type PushEnvelope struct {
	Message struct {
		// Data is base64 in the JSON body; encoding/json decodes it.
		Data       []byte            `json:"data,omitempty"`
		ID         string            `json:"id"`
		Attributes map[string]string `json:"attributes,omitempty"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// DecodeRequest extracts a domain.Request from body. Both a push envelope
// and a bare request object are accepted. The returned ID is the Pub/Sub
// message ID, empty for bare requests.
func DecodeRequest(body []byte) (domain.Request, string, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return domain.Request{}, "", fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	payload, id := body, ""
	if _, ok := probe["message"]; ok {
		var env PushEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return domain.Request{}, "", fmt.Errorf("%w: envelope: %v", domain.ErrInvalidRequest, err)
		}
		payload, id = env.Message.Data, env.Message.ID
	}

	var req domain.Request
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return domain.Request{}, id, fmt.Errorf("%w: payload: %v", domain.ErrInvalidRequest, err)
	}
	return req, id, nil
}
