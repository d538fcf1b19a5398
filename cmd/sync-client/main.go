package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP sync server address")
	wsURL := flag.String("ws", "", "websocket URL, e.g. ws://localhost:8080/ws (overrides -addr)")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	flag.Parse()

	log := slog.Default().With("component", "sync-client")
	for {
		var err error
		if *wsURL != "" {
			err = runWS(*wsURL, os.Stdout, *pretty, log)
		} else {
			err = runTCP(*addr, os.Stdout, *pretty, log)
		}
		if err != nil {
			log.Warn("disconnected", "error", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func runTCP(addr string, w io.Writer, pretty bool, log *slog.Logger) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Info("connected", "addr", addr)
	return tail(conn, w, pretty)
}

func runWS(url string, w io.Writer, pretty bool, log *slog.Logger) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	log.Info("connected", "url", url)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		printEvent(w, msg, pretty)
	}
}

// tail prints newline-delimited events until the stream ends.
func tail(r io.Reader, w io.Writer, pretty bool) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		printEvent(w, sc.Bytes(), pretty)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

func printEvent(w io.Writer, line []byte, pretty bool) {
	if !pretty {
		fmt.Fprintln(w, string(line))
		return
	}
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		// not JSON? print raw
		fmt.Fprintln(w, string(line))
		return
	}
	b, _ := json.MarshalIndent(obj, "", "  ")
	fmt.Fprintln(w, string(b))
}
