// Command client is a minimal terminal client for the sync server. Each line
// typed on stdin becomes the new document content; broadcasts from other
// participants are printed as they arrive.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	clientsync "github.com/elyesghazel/notedown/internal/client/sync"
	clientws "github.com/elyesghazel/notedown/internal/client/ws"
	"github.com/elyesghazel/notedown/internal/logging"
	"github.com/elyesghazel/notedown/internal/protocol"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	serverURL := flag.String("u", "http://localhost:8080", "server URL")
	token := flag.String("t", "", "owner access token")
	guestID := flag.String("g", "", "guest identifier from a previous session")
	documentID := flag.String("d", "", "document id to edit as owner")
	shareUUID := flag.String("s", "", "share uuid to join as guest")
	guestName := flag.String("n", "", "guest display name (share mode)")
	flag.Parse()

	if (*documentID == "") == (*shareUUID == "") {
		return fmt.Errorf("exactly one of -d or -s is required")
	}
	if *shareUUID != "" && *guestID == "" {
		*guestID = uuid.NewString()
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var syncer *clientsync.Syncer
	c, err := clientws.Dial(ctx, clientws.Options{
		ServerURL: *serverURL,
		Token:     *token,
		GuestID:   *guestID,
	}, func(p protocol.DocContentPayload) {
		syncer.Receive(p.Content)
		fmt.Printf("\r<< %s\n> ", p.Content)
	}, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	emit := func(content string) {
		var err error
		if *documentID != "" {
			err = c.SendDocUpdate(*documentID, content)
		} else {
			err = c.SendShareUpdate(*shareUUID, content)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "update failed: %v\n", err)
		}
	}
	syncer = clientsync.NewSyncer(0, emit, clientsync.SaverFunc(func(_ context.Context, content string) error {
		emit(content)
		return nil
	}))

	if *documentID != "" {
		if err := c.JoinDocument(ctx, *documentID); err != nil {
			return err
		}
		fmt.Printf("joined document %s\n", *documentID)
	} else {
		if err := joinShare(ctx, c, *shareUUID, *guestName); err != nil {
			return err
		}
		fmt.Printf("joined share %s\n", *shareUUID)
	}

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			syncer.Edit(scanner.Text())
			fmt.Print("> ")
		}
		cancel()
	}()

	<-ctx.Done()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer flushCancel()
	if err := syncer.Flush(flushCtx); err != nil {
		fmt.Fprintf(os.Stderr, "final flush failed: %v\n", err)
	}
	return nil
}

// joinShare attempts an unauthenticated join first and falls back to a
// password prompt when the share is protected.
func joinShare(ctx context.Context, c *clientws.Client, uuid, guestName string) error {
	err := c.JoinShare(ctx, uuid, guestName, "")
	if err == nil || !strings.Contains(err.Error(), "invalid password") {
		return err
	}

	fmt.Print("edit password: ")
	pw, readErr := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if readErr != nil {
		return fmt.Errorf("reading password: %w", readErr)
	}
	return c.JoinShare(ctx, uuid, guestName, string(pw))
}
