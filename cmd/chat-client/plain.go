package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/omochice/realtime-messenger/internal/chat"
	"github.com/omochice/realtime-messenger/internal/client"
	"github.com/omochice/realtime-messenger/internal/config"
	"github.com/omochice/realtime-messenger/pkg/protocol"
)

// lineRenderer prints conversation and badge updates as plain lines.
type lineRenderer struct {
	mu       sync.Mutex
	out      io.Writer
	contacts map[int]chat.Contact
}

func newLineRenderer(out io.Writer, roster []chat.Contact) *lineRenderer {
	contacts := make(map[int]chat.Contact, len(roster))
	for _, c := range roster {
		contacts[c.ID] = c
	}
	return &lineRenderer{out: out, contacts: contacts}
}

func (r *lineRenderer) printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *lineRenderer) name(id int) string {
	if c, ok := r.contacts[id]; ok {
		return c.Username
	}
	return "#" + strconv.Itoa(id)
}

func (r *lineRenderer) ContactSelected(_ *chat.Contact, current chat.Contact) {
	r.printf("*** now chatting with %s ***", current.Username)
}

func (r *lineRenderer) MessagesReplaced(messages []protocol.ChatMessage) {
	if len(messages) == 0 {
		r.printf("%s", chat.EmptyConversationText)
		return
	}
	for _, m := range messages {
		r.MessageAppended(m)
	}
}

func (r *lineRenderer) MessageAppended(m protocol.ChatMessage) {
	sender := m.Username
	if m.IsSent {
		sender = "you"
	} else if sender == "" {
		sender = r.name(m.SenderID)
	}
	stamp := ""
	if !m.CreatedAt.IsZero() {
		stamp = m.CreatedAt.Local().Format(time.Kitchen) + " "
	}
	r.printf("%s[%s]: %s", stamp, sender, m.Content)
}

func (r *lineRenderer) ScrollToBottom() {}

func (r *lineRenderer) ShowBadge(contactID, count int) {
	r.printf("*** %d unread from %s ***", count, r.name(contactID))
}

func (r *lineRenderer) HideBadge(int) {}

func (r *lineRenderer) ConnectionChanged(open bool) {
	if open {
		r.printf("*** connected ***")
	} else {
		r.printf("*** disconnected, reconnecting ***")
	}
}

func runPlain(ctx context.Context, cfg *config.Config) error {
	out := newLineRenderer(os.Stdout, cfg.Contacts)
	c, err := client.NewFromConfig(cfg,
		client.WithRenderer(out),
		client.WithBadges(out),
		client.WithStatus(out),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go scanLines(os.Stdin, lines)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return prompt(ctx, c, out, lines)
	})
	return g.Wait()
}

func scanLines(in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("error reading input")
	}
}

// prompt handles one command or message per input line.
func prompt(ctx context.Context, c *client.Client, out *lineRenderer, lines <-chan string) error {
	out.printf("Commands: /contacts, /open <id>, /quit. Anything else is sent to the open conversation.")
	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}

		text := strings.TrimSpace(line)
		switch {
		case text == "":
		case text == "/quit" || text == "quit" || text == "exit":
			return nil
		case text == "/contacts":
			for _, contact := range c.Roster() {
				out.printf("  %d  [%s] %s", contact.ID, contact.Initials, contact.Username)
			}
		case strings.HasPrefix(text, "/open"):
			id, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(text, "/open")))
			if err != nil {
				out.printf("usage: /open <contact id>")
				continue
			}
			if err := c.SelectContact(ctx, id); err != nil {
				out.printf("cannot open %d: %v", id, err)
			}
		default:
			if !c.Submit(ctx, &chat.TextInput{Value: text}) {
				out.printf("(not sent: open a conversation and wait for the connection)")
			}
		}
	}
}
