package dispatcher

import (
	"bytes"
	"encoding/json"

	"github.com/vietddude/dashclient/internal/core/domain"
	"github.com/vietddude/dashclient/internal/infra/transport"
)

type envelope struct {
	Success  *bool           `json:"success"`
	Data     json.RawMessage `json:"data"`
	Metadata map[string]any  `json:"metadata"`
	Error    map[string]any  `json:"error"`
}

// success unwraps a {success, data, metadata} envelope when the body is one,
// otherwise the whole body becomes the data.
func (d *Dispatcher) success(resp *transport.Response, req domain.Request) domain.Result {
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return domain.OK(nil, nil)
	}

	if !json.Valid(body) {
		// Non-JSON payloads are carried as a JSON string.
		data, _ := json.Marshal(string(body))
		return domain.OK(data, nil)
	}

	var env envelope
	if body[0] == '{' && json.Unmarshal(body, &env) == nil && env.Success != nil {
		if *env.Success {
			return domain.OK(env.Data, env.Metadata)
		}
		// A 2xx answer carrying a failure envelope.
		payload := env.Error
		if payload == nil {
			payload = map[string]any{}
		}
		return d.fail(payload, req)
	}
	return domain.OK(json.RawMessage(body), nil)
}
