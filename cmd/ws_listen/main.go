// Command ws_listen follows the vtransformd state stream and prints one line
// per event.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

func main() {
	var (
		wsURL = flag.String("url", "ws://127.0.0.1:8765/ws", "vtransformd state websocket URL")
		types = flag.String("types", "", "comma-separated event types to show (default: all)")
		raw   = flag.Bool("raw", false, "print envelopes verbatim")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	var writeMu sync.Mutex

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for range pingTicker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				log.Printf("ping failed: %v", err)
				return
			}
		}
	}()

	p := printer{w: os.Stdout, raw: *raw, only: parseTypes(*types)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if messageType == websocket.TextMessage {
				p.print(message)
			}
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

func parseTypes(s string) map[string]bool {
	if s == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out[t] = true
		}
	}
	return out
}

type printer struct {
	w    io.Writer
	raw  bool
	only map[string]bool
}

// print writes one envelope. Unknown types fall back to the data payload.
func (p printer) print(message []byte) {
	if !gjson.ValidBytes(message) {
		fmt.Fprintf(p.w, "[TEXT] %s\n", message)
		return
	}
	env := gjson.ParseBytes(message)
	typ := env.Get("type").String()
	if p.only != nil && !p.only[typ] {
		return
	}
	if p.raw {
		fmt.Fprintf(p.w, "%s\n", message)
		return
	}
	fmt.Fprintf(p.w, "[%s] %s\n", strings.ToUpper(typ), summarize(typ, env.Get("data")))
}

func summarize(typ string, data gjson.Result) string {
	switch typ {
	case "state_init":
		return fmt.Sprintf("enabled=%v target=%s preset=%s style=%q",
			data.Get("enabled").Bool(), data.Get("target").String(),
			data.Get("preset").String(), data.Get("style").String())
	case "style_changed":
		return fmt.Sprintf("%s %s", data.Get("target").String(), data.Get("style").String())
	case "enabled_changed":
		state := "OFF"
		if data.Get("enabled").Bool() {
			state = "ON"
		}
		return fmt.Sprintf("%s target=%s", state, data.Get("target").String())
	case "preset_changed":
		return data.Get("preset").String()
	case "options_changed":
		o := data.Get("options")
		return fmt.Sprintf("preset=%s always_on=%s bindings=%d",
			o.Get("preset").String(), o.Get("always_on").String(), len(o.Get("hotkeys").Array()))
	case "options_rejected":
		return fmt.Sprintf("%s %s: %s", data.Get("reason").String(), data.Get("field").String(), data.Get("message").String())
	case "page_changed":
		return fmt.Sprintf("%s direct_video=%v", data.Get("url").String(), data.Get("direct_video").Bool())
	}
	return data.Raw
}
