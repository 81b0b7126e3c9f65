// Transcript viewer - real-time terminal display of a conversation.
// Connects to a session's presentation feed and re-renders the
// speaker-colored transcript on every update.
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
)

// Update mirrors the feed payload shape.
type Update struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages,omitempty"`
	Partial   *Message  `json:"partial,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type Message struct {
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
	Color     string  `json:"color"`
}

func main() {
	serverAddr := flag.String("server", "localhost:8080", "API server address")
	sessionID := flag.String("session", "", "Session ID to watch (required)")
	flag.Parse()

	if *sessionID == "" {
		log.Fatal("-session is required")
	}

	url := fmt.Sprintf("ws://%s/v1/sessions/%s/feed", *serverAddr, *sessionID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("Failed to connect to feed: %v", err)
	}
	defer conn.Close()

	log.Printf("Watching session %s", *sessionID)

	for {
		var update Update
		if err := conn.ReadJSON(&update); err != nil {
			log.Printf("Feed closed: %v", err)
			return
		}
		render(update)
	}
}

func render(update Update) {
	switch update.Type {
	case "transcript":
		// Clear and redraw so merged messages replace their old line.
		fmt.Print("\033[H\033[2J")
		fmt.Printf("Session %s\n\n", update.SessionID)
		for _, m := range update.Messages {
			fmt.Printf("%s[%s]%s %s\n", ansiColor(m.Color), m.Speaker, ansiReset(), m.Text)
		}
	case "partial":
		if update.Partial != nil {
			fmt.Printf("\r\033[K… [%s] %s", update.Partial.Speaker, update.Partial.Text)
		}
	case "started":
		fmt.Println("-- session started --")
	case "ended":
		fmt.Println("\n-- session ended --")
	case "error":
		fmt.Printf("\n-- error: %s --\n", update.Error)
	}
}

// ansiColor converts a #RRGGBB palette color to a truecolor escape.
func ansiColor(hex string) string {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return ""
	}
	r, err1 := strconv.ParseUint(hex[0:2], 16, 8)
	g, err2 := strconv.ParseUint(hex[2:4], 16, 8)
	b, err3 := strconv.ParseUint(hex[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return ""
	}
	return fmt.Sprintf("\033[38;2;%d;%d;%dm", r, g, b)
}

func ansiReset() string {
	return "\033[0m"
}
