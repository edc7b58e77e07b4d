package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/ragtime/ingestion"
	"github.com/urfave/cli/v2"
)

var errNoDocuments = errors.New("no documents to index")

// indexExtensions are the file types picked up when walking a directory.
var indexExtensions = map[string]bool{
	".txt": true,
	".md":  true,
	".srt": true,
	".vtt": true,
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "Chunk, embed and store text files",
		ArgsUsage: "<file or directory>...",
		Action:    runIndex,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "preset",
				Usage: "Chunking preset (" + strings.Join(ingestion.PresetNames(), ", ") + ")",
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Chunking strategy (recursive, token)",
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "Chunk size, overriding the preset",
			},
			&cli.IntFlag{
				Name:  "chunk-overlap",
				Usage: "Chunk overlap, overriding the preset",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of chunks embedded per request",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of documents processed concurrently",
			},
			&cli.BoolFlag{
				Name:  "replace",
				Usage: "Remove existing fragments of each document before indexing it",
			},
		},
	}
}

func runIndex(c *cli.Context) error {
	if c.NArg() == 0 {
		return errNoDocuments
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	section := cfg.Ingestion
	if v := c.String("preset"); v != "" {
		section.Preset = v
	}
	if v := c.String("strategy"); v != "" {
		section.Strategy = v
	}
	if v := c.Int("chunk-size"); v > 0 {
		section.ChunkSize = v
	}
	if v := c.Int("chunk-overlap"); v > 0 {
		section.ChunkOverlap = v
	}
	if v := c.Int("batch-size"); v > 0 {
		section.BatchSize = v
	}
	if v := c.Int("workers"); v > 0 {
		section.Workers = v
	}
	opts, err := section.Options()
	if err != nil {
		return fmt.Errorf("invalid chunking: %w", err)
	}
	opts = append(opts, ingestion.WithReplace(c.Bool("replace")))

	docs, err := loadDocuments(c.Args().Slice())
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return errNoDocuments
	}

	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	pipeline, err := engine.NewIngestionPipeline(opts...)
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	stats, err := pipeline.Ingest(c.Context, docs...)
	printStats(os.Stdout, pipeline.Collection(), stats)
	return err
}

// loadDocuments reads files and walks directories, one document per file.
// The source ID is the file's base name.
func loadDocuments(paths []string) ([]ingestion.Document, error) {
	var docs []ingestion.Document
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			doc, err := readDocument(root)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !indexExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			doc, err := readDocument(path)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func readDocument(path string) (ingestion.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingestion.Document{}, err
	}
	base := filepath.Base(path)
	return ingestion.Document{
		SourceID: base,
		Title:    strings.TrimSuffix(base, filepath.Ext(base)),
		Text:     string(data),
		Metadata: map[string]string{"path": path},
	}, nil
}

func printStats(w io.Writer, collection string, stats ingestion.Stats) {
	labelColor.Fprintf(w, "Indexed into %q:\n", collection)
	fmt.Fprintf(w, "  documents:  %d\n", stats.Documents)
	fmt.Fprintf(w, "  chunks:     %d\n", stats.Chunks)
	fmt.Fprintf(w, "  created:    %d\n", stats.Created)
	fmt.Fprintf(w, "  updated:    %d\n", stats.Updated)
	fmt.Fprintf(w, "  duplicates: %d\n", stats.Duplicates)
	if stats.Replaced > 0 {
		fmt.Fprintf(w, "  replaced:   %d\n", stats.Replaced)
	}
	if stats.Failed > 0 {
		warnColor.Fprintf(w, "  failed:     %d\n", stats.Failed)
	}
}
