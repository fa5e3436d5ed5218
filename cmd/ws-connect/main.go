// Command ws-connect is a development probe for the realtime endpoint.
// It dials the server, authenticates in-band with the supplied token,
// optionally joins a task room, and prints every event it receives.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type command struct {
	Action string `json:"action"`
	Token  string `json:"token,omitempty"`
	TaskID string `json:"task_id,omitempty"`
}

func main() {
	var (
		addr   = flag.String("addr", "ws://localhost:8080/ws", "realtime endpoint URL")
		token  = flag.String("token", os.Getenv("AUTH_TOKEN"), "access token (defaults to AUTH_TOKEN)")
		taskID = flag.String("task", "", "task room to join after authenticating")
	)
	flag.Parse()

	if *token == "" {
		log.Fatal("-token is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", *addr, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	if err := wsjson.Write(ctx, conn, command{Action: "authenticate", Token: *token}); err != nil {
		log.Fatalf("authenticate: %v", err)
	}
	if *taskID != "" {
		if err := wsjson.Write(ctx, conn, command{Action: "join_task", TaskID: *taskID}); err != nil {
			log.Fatalf("join task: %v", err)
		}
	}

	log.Printf("connected to %s, waiting for events", *addr)
	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Fatalf("read: %v", err)
		}
		log.Printf("event: %s", raw)
	}
}
