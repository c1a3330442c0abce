package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"codeberg.org/snonux/parlo/internal/translation"
)

const helpText = `Type a phrase and press enter to translate it.
Commands:
  :online              prefer online translation
  :offline             prefer offline translation
  :mode auto|online|offline
                       request a mode for the following phrases
  :lang SOURCE TARGET  change the language pair (SOURCE may be auto)
  :status              show mode, connectivity and engine state
  :history             show the translations of this session
  :retry               retry a failed offline initialization
  :help                show this help
  :quit                end the session`

// RunInteractive reads phrases and commands from in until EOF, ":quit" or
// ctx is done.
func (c *Controller) RunInteractive(ctx context.Context, in io.Reader) error {
	c.printf("parlo session, %s. Type :help for commands.\n", c.status())

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		c.printf("> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				c.printf("\n")
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}

			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, ":") {
				if quit := c.command(ctx, line); quit {
					return nil
				}
				continue
			}
			_, _ = c.Handle(ctx, line)
		}
	}
}

// command runs a ":" command and reports whether the session should end.
func (c *Controller) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		c.printf("%s\n", helpText)
	case ":online":
		c.translator.SetModePreference(true)
		c.printf("Preferring online translation\n")
		if !c.translator.CurrentConnectivity() {
			c.printf("%s\n", noticeOnlineWithoutNetwork)
		}
	case ":offline":
		c.translator.SetModePreference(false)
		c.printf("Preferring offline translation\n")
	case ":mode":
		if len(fields) != 2 {
			c.printf("usage: :mode auto|online|offline\n")
			break
		}
		mode, err := translation.ParseMode(fields[1])
		if err != nil {
			c.printf("%v\n", err)
			break
		}
		c.SetMode(mode)
		c.printf("Requested mode: %s\n", mode)
	case ":lang":
		if len(fields) != 3 {
			c.printf("usage: :lang SOURCE TARGET\n")
			break
		}
		c.SetLanguages(fields[1], fields[2])
		c.printf("Translating %s -> %s\n", fields[1], fields[2])
	case ":status":
		c.printf("%s\n", c.status())
	case ":history":
		entries := c.History()
		if len(entries) == 0 {
			c.printf("No translations yet\n")
		}
		for _, e := range entries {
			c.printf("%s  %s -> %s\n", e.Time.Format("15:04:05"), e.Request.Text, FormatResult(e.Result))
		}
	case ":retry":
		if err := c.translator.Retry(ctx); err != nil {
			c.printf("Offline engine still unavailable: %v\n", err)
			break
		}
		c.printf("Offline engine ready\n")
	default:
		c.printf("unknown command %s, type :help\n", fields[0])
	}
	return false
}

func (c *Controller) status() string {
	c.mu.Lock()
	source, target, mode := c.source, c.target, c.mode
	c.mu.Unlock()

	preference := "offline"
	if c.translator.ModePreference() {
		preference = "online"
	}
	network := "offline"
	if c.translator.CurrentConnectivity() {
		network = "online"
	}

	return fmt.Sprintf("%s -> %s, mode %s, prefer %s, network %s, engine %s",
		source, target, mode, preference, network, c.translator.CurrentEngineState())
}
