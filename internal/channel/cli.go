package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Prompt is printed before every question, without a trailing newline.
const Prompt = "Please ask your question..."

// Answerer produces the reply for one turn of a chat session.
type Answerer interface {
	ProcessDirect(ctx context.Context, content, sessionKey string) (string, error)
}

// CLI is the interactive terminal loop.
type CLI struct {
	agent      Answerer
	sessionKey string
	logger     *slog.Logger
	in         io.Reader
	out        io.Writer
	spinner    bool

	promptColor *color.Color
	errColor    *color.Color

	thinking  bool
	thinkMu   sync.Mutex
	thinkStop chan struct{}
	thinkDone chan struct{}
}

type CLIConfig struct {
	Agent      Answerer
	SessionKey string
	Logger     *slog.Logger
	In         io.Reader
	Out        io.Writer
	Spinner    bool // animate while waiting for the answer
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CLI{
		agent:       cfg.Agent,
		sessionKey:  cfg.SessionKey,
		logger:      cfg.Logger,
		in:          cfg.In,
		out:         cfg.Out,
		spinner:     cfg.Spinner,
		promptColor: color.New(color.FgCyan, color.Bold),
		errColor:    color.New(color.FgRed),
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the read-answer loop until the user types "exit", input ends,
// or ctx is cancelled. None of these is an error.
func (c *CLI) Start(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, _ = c.promptColor.Fprint(c.out, Prompt)
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(c.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") {
			c.logger.Debug("user requested quit")
			return nil
		}

		c.startThinking()
		answer, err := c.agent.ProcessDirect(ctx, line, c.sessionKey)
		c.stopThinking()

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("answer failed", "err", err)
			_, _ = c.errColor.Fprintf(c.out, "Error: %v\n", err)
			continue
		}
		_, _ = fmt.Fprintln(c.out, answer)
	}
}

func (c *CLI) startThinking() {
	if !c.spinner {
		return
	}
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if c.thinking {
		return
	}
	c.thinking = true
	c.thinkStop = make(chan struct{})
	c.thinkDone = make(chan struct{})
	go func(stop, done chan struct{}) {
		defer close(done)
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-stop:
				_, _ = fmt.Fprint(c.out, "\r\033[K")
				return
			case <-ticker.C:
				_, _ = fmt.Fprintf(c.out, "\r%s Thinking...", frames[i%len(frames)])
			}
		}
	}(c.thinkStop, c.thinkDone)
}

func (c *CLI) stopThinking() {
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if !c.thinking {
		return
	}
	c.thinking = false
	close(c.thinkStop)
	<-c.thinkDone
}
