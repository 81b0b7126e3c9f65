// Audio client - streams a WAV file into a recording session.
// Creates a session over the REST API, then sends the PCM payload in
// real-time sized chunks over the audio WebSocket.
package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

// Stream audio in chunks to simulate real-time capture.
// At 16kHz 16-bit mono = 32000 bytes/second, 100ms chunks = 3200 bytes.
const chunkSize = 3200
const chunkIntervalMs = 100

func main() {
	audioFile := flag.String("audio", "testdata/sample-16khz.wav", "Path to WAV file (16kHz 16-bit mono)")
	serverAddr := flag.String("server", "localhost:8080", "API server address")
	sessionID := flag.String("session", "", "Session ID (generated when empty)")
	language := flag.String("language", "en", "Transcription language")
	flag.Parse()

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer f.Close()

	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatalf("Failed to read WAV header: %v", err)
	}

	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal("Not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d",
		audioFormat, numChannels, sampleRate, bitsPerSample)

	if audioFormat != 1 { // PCM
		log.Fatal("Only PCM format supported")
	}
	if sampleRate != 16000 {
		log.Printf("Warning: Sample rate is %d Hz, expected 16000 Hz", sampleRate)
	}

	id, err := createSession(*serverAddr, *sessionID, *language)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	log.Printf("Session created: %s", id)

	wsAddr := fmt.Sprintf("ws://%s/v1/sessions/%s/audio", *serverAddr, id)
	conn, _, err := websocket.DefaultDialer.Dial(wsAddr, nil)
	if err != nil {
		log.Fatalf("Failed to connect audio stream: %v", err)
	}
	defer conn.Close()

	log.Printf("Streaming audio to %s", wsAddr)

	audioChunk := make([]byte, chunkSize)
	var totalBytes int64
	var chunkNum int
	startTime := time.Now()

	for {
		n, err := f.Read(audioChunk)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to read audio: %v", err)
		}

		chunkNum++
		totalBytes += int64(n)

		if err := conn.WriteMessage(websocket.BinaryMessage, audioChunk[:n]); err != nil {
			log.Fatalf("Failed to send frame: %v", err)
		}

		if chunkNum%10 == 0 {
			log.Printf("Sent chunk %d (%d bytes total)", chunkNum, totalBytes)
		}

		// Simulate real-time streaming
		time.Sleep(chunkIntervalMs * time.Millisecond)
	}

	elapsed := time.Since(startTime)
	log.Printf("Finished streaming: %d chunks, %d bytes in %v", chunkNum, totalBytes, elapsed)

	// Give trailing finals a moment to land before closing the socket,
	// since closing it stops the session and clears the transcript.
	time.Sleep(2 * time.Second)
	printTranscript(*serverAddr, id)

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func createSession(addr, id, language string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"id": id, "language": language})
	resp, err := http.Post("http://"+addr+"/v1/sessions", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

func printTranscript(addr, id string) {
	resp, err := http.Get(fmt.Sprintf("http://%s/v1/sessions/%s/transcript", addr, id))
	if err != nil {
		log.Printf("Failed to fetch transcript: %v", err)
		return
	}
	defer resp.Body.Close()

	var out struct {
		Messages []struct {
			Speaker string `json:"speaker"`
			Text    string `json:"text"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Printf("Failed to decode transcript: %v", err)
		return
	}

	log.Printf("Transcript (%d messages):", len(out.Messages))
	for _, m := range out.Messages {
		log.Printf("  [%s] %s", m.Speaker, m.Text)
	}
}
