package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eriantys/eriantys-server-go/internal/client"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

var (
	serverURL = flag.String("server", "http://localhost:8080", "server base URL")
	nickname  = flag.String("nickname", "", "nickname to register")
	userID    = flag.Int("user", 0, "rejoin a suspended match as this user id instead of logging in")
	verbose   = flag.Bool("v", false, "log connection details")
)

var errConnectionLost = errors.New("connection lost")

func main() {
	flag.Parse()
	if *nickname == "" && *userID == 0 {
		fmt.Fprintln(os.Stderr, "a -nickname or -user is required")
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	c, err := open(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("connected as user %d\n", c.UserID())

	lines := scanLines(os.Stdin)
	for {
		go printPushes(os.Stdout, c)
		err := repl(lines, os.Stdout, c)
		c.Close()
		if !errors.Is(err, errConnectionLost) {
			return
		}

		// A suspended match keeps the user id; try to get back in.
		fmt.Println("connection lost, reconnecting...")
		*userID = c.UserID()
		if c, err = reconnect(logger); err != nil {
			fmt.Fprintf(os.Stderr, "reconnect failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("reconnected as user %d\n", c.UserID())
	}
}

func open(logger *zap.Logger) (*client.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if *userID != 0 {
		return client.Reconnect(ctx, *serverURL, *userID, client.Options{}, logger)
	}
	return client.Login(ctx, *serverURL, *nickname, client.Options{}, logger)
}

func reconnect(logger *zap.Logger) (*client.Client, error) {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		time.Sleep(time.Second)
		var c *client.Client
		if c, err = open(logger); err == nil {
			return c, nil
		}
	}
	return nil, err
}

func scanLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func repl(lines <-chan string, out io.Writer, c *client.Client) error {
	prompt(out, c)
	for {
		select {
		case <-c.Failed():
			return errConnectionLost
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
			case "quit", "exit":
				return nil
			case "help":
				for _, k := range c.Allowed() {
					fmt.Fprintf(out, "  %s\n", usageOf(k))
				}
			default:
				run(out, c, line)
			}
			prompt(out, c)
		}
	}
}

func run(out io.Writer, c *client.Client, line string) {
	cmd, err := parseLine(line)
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := c.Send(ctx, cmd)
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	if !reply.OK() {
		fmt.Fprintf(out, "%s: %s\n", reply.ErrorKind, reply.ErrorMessage)
		return
	}
	if reply.LobbyID != "" {
		fmt.Fprintf(out, "lobby %s\n", reply.LobbyID)
	}
	if r := reply.Requirements; r != nil {
		fmt.Fprintf(out, "select entrance %d-%d, colors %d-%d, islands %d-%d, on card %d-%d\n",
			r.Entrance.Min, r.Entrance.Max, r.Colors.Min, r.Colors.Max,
			r.Islands.Min, r.Islands.Max, r.OnCard.Min, r.OnCard.Max)
	}
}

func prompt(out io.Writer, c *client.Client) {
	fmt.Fprintf(out, "[%s] > ", c.State())
}

func printPushes(out io.Writer, c *client.Client) {
	for push := range c.Pushes() {
		switch push.Kind {
		case protocol.PushLobbyUpdated:
			fmt.Fprintf(out, "\n%s %s\n", push.Kind, push.Lobby)
		case protocol.PushPlayerDisconnected, protocol.PushMatchResumed:
			fmt.Fprintf(out, "\n%s user %d\n", push.Kind, push.UserID)
		default:
			fmt.Fprintf(out, "\n%s%s\n", push.Kind, describeStatus(push.Status))
		}
		prompt(out, c)
	}
}

func describeStatus(st *protocol.Status) string {
	if st == nil {
		return ""
	}
	if st.Over {
		if st.Winner == "" {
			return fmt.Sprintf(" draw (%s)", st.Reason)
		}
		return fmt.Sprintf(" winner %s (%s)", st.Winner, st.Reason)
	}
	return fmt.Sprintf(" round %d %s %s, user %d to play", st.Round, st.Phase, st.Subphase, st.CurrentUser)
}
