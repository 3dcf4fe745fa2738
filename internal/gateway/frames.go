package gateway

// Telephony media-stream frames. One JSON object per websocket message,
// discriminated by the event field.

type inboundFrame struct {
	Event     string      `json:"event"`
	Protocol  string      `json:"protocol,omitempty"`
	Version   string      `json:"version,omitempty"`
	StreamSid string      `json:"streamSid,omitempty"`
	Start     *startFrame `json:"start,omitempty"`
	Media     *mediaFrame `json:"media,omitempty"`
	Mark      *markFrame  `json:"mark,omitempty"`
}

type startFrame struct {
	StreamSid        string            `json:"streamSid"`
	CallSid          string            `json:"callSid"`
	CustomParameters map[string]string `json:"customParameters"`
}

type mediaFrame struct {
	Payload string `json:"payload"` // base64 audio, relayed opaque
}

type markFrame struct {
	Name string `json:"name"`
}

type outboundMediaFrame struct {
	Event     string       `json:"event"`
	StreamSid string       `json:"streamSid"`
	Media     mediaPayload `json:"media"`
}

type mediaPayload struct {
	Payload string `json:"payload"`
}
