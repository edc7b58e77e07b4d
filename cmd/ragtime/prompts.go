package main

import (
	"fmt"
	"io"
	"os"

	"github.com/poiesic/ragtime/prompt"
	"github.com/urfave/cli/v2"
)

func promptsCommand() *cli.Command {
	return &cli.Command{
		Name:   "prompts",
		Usage:  "List the available prompt template versions",
		Action: runPrompts,
	}
}

func runPrompts(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	registry, err := prompt.DefaultRegistry(cfg.Pipeline.PromptVersion)
	if err != nil {
		return err
	}
	printVersions(os.Stdout, registry.Versions())
	return nil
}

func printVersions(w io.Writer, versions []prompt.VersionInfo) {
	for _, v := range versions {
		mark := " "
		if v.Active {
			mark = markColor.Sprint("*")
		}
		fmt.Fprintf(w, "%s %s", mark, v.Version)
		dimColor.Fprintf(w, "  (%s)\n", v.Date)
		if v.Changelog != "" {
			fmt.Fprintf(w, "    %s\n", v.Changelog)
		}
	}
}
