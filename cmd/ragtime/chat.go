package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/poiesic/ragtime"
	"github.com/poiesic/ragtime/core"
	"github.com/urfave/cli/v2"
)

// lineReader is the part of *readline.Instance the chat loop needs.
type lineReader interface {
	Readline() (string, error)
}

// conversation is the part of *ragtime.Session the chat loop needs.
type conversation interface {
	ID() string
	AskWithOptions(ctx context.Context, question string, opts ragtime.AskOptions) (*core.Answer, error)
	History(ctx context.Context) ([]core.Turn, error)
	Reset(ctx context.Context) error
}

var _ conversation = (*ragtime.Session)(nil)

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:   "chat",
		Usage:  "Ask follow-up questions in an interactive session",
		Action: runChatCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "session",
				Usage: "Resume an existing session ID (requires a shared session store)",
			},
			&cli.StringFlag{
				Name:  "language",
				Usage: "Answer in this ISO 639-1 language instead of the detected one",
			},
		},
	}
}

func runChatCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	pipeline, err := engine.NewPipeline(cfg.Pipeline)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	store, closeStore, err := newSessionStore(c.Context, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	session := pipeline.NewSession(store)
	if id := c.String("session"); id != "" {
		session = pipeline.ResumeSession(store, id)
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("ragtime> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	return runChat(c.Context, rl, os.Stdout, session, ragtime.AskOptions{Language: c.String("language")})
}

// runChat reads questions until EOF or /quit. Answer failures are printed
// and the loop continues; only reader errors end it early.
func runChat(ctx context.Context, rl lineReader, out io.Writer, session conversation, opts ragtime.AskOptions) error {
	dimColor.Fprintf(out, "Session %s. Type /help for commands.\n", session.ID())

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "Goodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := chatCommandLine(ctx, out, session, line)
			if err != nil {
				printError(out, err)
			}
			if quit {
				fmt.Fprintln(out, "Goodbye!")
				return nil
			}
			continue
		}

		answer, err := session.AskWithOptions(ctx, line, opts)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			printError(out, err)
			continue
		}
		printAnswer(out, answer)
		fmt.Fprintln(out)
	}
}

func chatCommandLine(ctx context.Context, out io.Writer, session conversation, line string) (bool, error) {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "/quit", "/exit":
		return true, nil
	case "/reset":
		if err := session.Reset(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "History cleared.")
	case "/history":
		turns, err := session.History(ctx)
		if err != nil {
			return false, err
		}
		if len(turns) == 0 {
			fmt.Fprintln(out, "No history yet.")
		}
		for _, t := range turns {
			labelColor.Fprintf(out, "%s: ", t.Role)
			fmt.Fprintln(out, t.Content)
		}
	case "/help":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  /history  show the conversation so far")
		fmt.Fprintln(out, "  /reset    forget the conversation")
		fmt.Fprintln(out, "  /quit     leave")
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", line)
	}
	return false, nil
}
