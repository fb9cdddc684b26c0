// Command ask indexes one document and answers questions about it from the
// command line. Questions come from -q flags, or one per line on stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kirillkom/document-qa/internal/bootstrap"
	"github.com/kirillkom/document-qa/internal/config"
	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/core/ports"
	"github.com/kirillkom/document-qa/internal/observability/logging"
)

type questionList []string

func (q *questionList) String() string { return strings.Join(*q, "; ") }

func (q *questionList) Set(v string) error {
	*q = append(*q, v)
	return nil
}

func main() {
	_ = godotenv.Load()

	var (
		filePath    string
		questions   questionList
		showSources bool
	)
	flag.StringVar(&filePath, "file", "", "Document to index (txt, md, pdf, xlsx)")
	flag.Var(&questions, "q", "Question to ask; repeatable. Reads stdin when omitted")
	flag.BoolVar(&showSources, "sources", false, "Print the segments each answer was grounded on")
	flag.Parse()
	if filePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: ask -file document.pdf [-q question ...] [-sources]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLoggerTo(os.Stderr, "docqa-ask", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := run(ctx, app, filePath, questions, os.Stdin, os.Stdout, showSources); err != nil {
		fmt.Fprintf(os.Stderr, "ask: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, app *bootstrap.App, filePath string, questions []string, stdin io.Reader, stdout io.Writer, showSources bool) error {
	session, err := app.NewSession("cli")
	if err != nil {
		return err
	}
	defer session.Discard()

	handle, err := indexFile(ctx, app.Extractor, session, filePath)
	if err != nil {
		return err
	}

	answerOne := func(question string) error {
		answer, err := session.Ask(ctx, handle, question)
		if err != nil {
			if domain.Retryable(err) || domain.IsKind(err, domain.ErrEmptyIndex) {
				fmt.Fprintf(stdout, "! %v\n", err)
				return nil
			}
			return err
		}
		fmt.Fprintln(stdout, answer.Text)
		if showSources {
			for _, source := range answer.Sources {
				fmt.Fprintf(stdout, "  [%d] page=%d score=%.3f %s\n",
					source.Segment.Index, source.Segment.Page, source.Score, preview(source.Segment.Text, 80))
			}
		}
		return nil
	}

	if len(questions) > 0 {
		for _, question := range questions {
			if err := answerOne(question); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if err := answerOne(question); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func indexFile(ctx context.Context, extractor ports.TextExtractor, session ports.DocumentSession, filePath string) (domain.IndexHandle, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	doc, err := extractor.Extract(ctx, filepath.Base(filePath), mime.TypeByExtension(filepath.Ext(filePath)), f)
	if err != nil {
		return "", err
	}
	handle, err := session.Build(ctx, doc)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return "", fmt.Errorf("%s: %w", filePath, err)
		}
		return "", err
	}
	return handle, nil
}

func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
