// callsim simulates a telephony media stream against a running relay: it
// opens the stream websocket, sends a start frame, streams audio from a raw
// mu-law file (or synthetic silence) in real-time chunks, then sends stop.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// 8kHz mu-law: one byte per sample, 160 bytes per 20ms frame.
const chunkSize = 160
const chunkIntervalMs = 20

type frame struct {
	Event     string          `json:"event"`
	Protocol  string          `json:"protocol,omitempty"`
	Version   string          `json:"version,omitempty"`
	StreamSid string          `json:"streamSid,omitempty"`
	Start     *startPayload   `json:"start,omitempty"`
	Media     *mediaPayload   `json:"media,omitempty"`
	Mark      json.RawMessage `json:"mark,omitempty"`
}

type startPayload struct {
	StreamSid        string            `json:"streamSid"`
	CallSid          string            `json:"callSid"`
	CustomParameters map[string]string `json:"customParameters"`
}

type mediaPayload struct {
	Payload string `json:"payload"`
}

func main() {
	serverURL := flag.String("server", "ws://localhost:8080/v1/twilio/stream", "Stream websocket URL")
	audioFile := flag.String("audio", "", "Path to raw 8kHz mu-law audio (empty for 5s of silence)")
	businessID := flag.String("business", "biz-demo", "Business ID custom parameter")
	flag.Parse()

	callSid := "CA" + uuid.NewString()
	streamSid := "MZ" + uuid.NewString()

	ws, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer ws.Close()

	log.Printf("Connected to %s", *serverURL)

	// Print everything the relay sends back.
	go func() {
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var f frame
			if json.Unmarshal(data, &f) == nil && f.Event == "media" && f.Media != nil {
				log.Printf("Received %d bytes of audio", base64.StdEncoding.DecodedLen(len(f.Media.Payload)))
				continue
			}
			log.Printf("Received: %s", data)
		}
	}()

	send := func(f frame) {
		if err := ws.WriteJSON(f); err != nil {
			log.Fatalf("Failed to send %s frame: %v", f.Event, err)
		}
	}

	send(frame{Event: "connected", Protocol: "Call", Version: "1.0.0"})
	send(frame{Event: "start", Start: &startPayload{
		StreamSid: streamSid,
		CallSid:   callSid,
		CustomParameters: map[string]string{
			"businessId": *businessID,
		},
	}})
	log.Printf("Streaming: callSid=%s streamSid=%s businessId=%s", callSid, streamSid, *businessID)

	var audio io.Reader
	if *audioFile != "" {
		f, err := os.Open(*audioFile)
		if err != nil {
			log.Fatalf("Failed to open audio file: %v", err)
		}
		defer f.Close()
		audio = f
	} else {
		// 5 seconds of mu-law silence (0xFF).
		silence := make([]byte, 5*8000)
		for i := range silence {
			silence[i] = 0xFF
		}
		audio = bytes.NewReader(silence)
	}

	chunk := make([]byte, chunkSize)
	var chunkNum int
	var totalBytes int64
	startTime := time.Now()

	for {
		n, err := audio.Read(chunk)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to read audio: %v", err)
		}

		chunkNum++
		totalBytes += int64(n)
		send(frame{Event: "media", Media: &mediaPayload{
			Payload: base64.StdEncoding.EncodeToString(chunk[:n]),
		}})

		if chunkNum%100 == 0 {
			log.Printf("Sent chunk %d (%d bytes total)", chunkNum, totalBytes)
		}
		time.Sleep(chunkIntervalMs * time.Millisecond)
	}

	log.Printf("Finished streaming: %d chunks, %d bytes in %v", chunkNum, totalBytes, time.Since(startTime))

	send(frame{Event: "stop"})

	// Give the relay a moment to finalize before hanging up.
	time.Sleep(time.Second)
	log.Printf("Call complete: callSid=%s", callSid)
}
