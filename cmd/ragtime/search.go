package main

import (
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Show the rewritten queries and matching fragments without answering",
		ArgsUsage: "<question>",
		Action:    runSearch,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the search result as JSON",
			},
		},
	}
}

func runSearch(c *cli.Context) error {
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

	result, err := pipeline.Search(c.Context, question, nil)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return printJSON(os.Stdout, result)
	}
	printSearch(os.Stdout, result)
	return nil
}
