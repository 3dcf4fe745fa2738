package http

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"ai-call-relay-service/internal/store"
)

// TwiML response documents for the voice webhook.

type twimlResponse struct {
	XMLName xml.Name      `xml:"Response"`
	Say     string        `xml:"Say,omitempty"`
	Hangup  *struct{}     `xml:"Hangup,omitempty"`
	Connect *twimlConnect `xml:"Connect,omitempty"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL        string           `xml:"url,attr"`
	Parameters []twimlParameter `xml:"Parameter"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// voiceHandler answers the telephony provider's incoming-call webhook with a
// TwiML document that connects the call's media stream to this service. The
// webhook URL carries the business identifier as a query parameter; it is
// validated here so a misconfigured number is rejected before any stream is
// opened.
func voiceHandler(cfg store.ConfigStore, publicHost string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeTwiML(w, rejectTwiML())
			return
		}
		callSid := r.PostFormValue("CallSid")
		businessID := r.URL.Query().Get("businessId")

		logger := log.With().Str("callSid", callSid).Str("businessId", businessID).Logger()

		if businessID == "" {
			logger.Error().Msg("Voice webhook called without businessId")
			writeTwiML(w, rejectTwiML())
			return
		}
		if _, err := cfg.GetBusinessContext(r.Context(), businessID); err != nil {
			logger.Error().Err(err).Msg("Voice webhook rejected")
			writeTwiML(w, rejectTwiML())
			return
		}

		logger.Info().Str("from", r.PostFormValue("From")).Msg("Incoming call accepted")
		writeTwiML(w, twimlResponse{
			Connect: &twimlConnect{
				Stream: twimlStream{
					URL: fmt.Sprintf("wss://%s/v1/twilio/stream", publicHost),
					Parameters: []twimlParameter{
						{Name: "businessId", Value: businessID},
					},
				},
			},
		})
	}
}

func rejectTwiML() twimlResponse {
	return twimlResponse{
		Say:    "This number is not in service. Goodbye.",
		Hangup: &struct{}{},
	}
}

func writeTwiML(w http.ResponseWriter, doc twimlResponse) {
	body, err := xml.Marshal(doc)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}
