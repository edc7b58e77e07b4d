package main

import (
	"errors"
	"os"
	"strings"

	"github.com/poiesic/ragtime"
	"github.com/urfave/cli/v2"
)

var errQuestionRequired = errors.New("a question is required")

var askFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "debug",
		Usage: "Include rewritten queries, candidates and the prompt",
	},
	&cli.StringFlag{
		Name:  "language",
		Usage: "Answer in this ISO 639-1 language instead of the detected one",
	},
	&cli.BoolFlag{
		Name:  "json",
		Usage: "Print the answer as JSON",
	},
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a single question",
		ArgsUsage: "<question>",
		Flags:     askFlags,
		Action:    runAsk,
	}
}

func runAsk(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errQuestionRequired
	}

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

	answer, err := pipeline.AskWithOptions(c.Context, question, nil, ragtime.AskOptions{
		Debug:    c.Bool("debug"),
		Language: c.String("language"),
	})
	if err != nil {
		return err
	}

	if c.Bool("json") || c.Bool("debug") {
		return printJSON(os.Stdout, answer)
	}
	printAnswer(os.Stdout, answer)
	return nil
}
