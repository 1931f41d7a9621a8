package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/markdave123-py/pdfchat/internal/app"
	"github.com/markdave123-py/pdfchat/internal/config"
	"github.com/markdave123-py/pdfchat/internal/core/events"
	"github.com/markdave123-py/pdfchat/internal/core/session"
	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
)

var (
	promptColor  = color.New(color.FgCyan, color.Bold)
	replyColor   = color.New(color.FgWhite)
	infoColor    = color.New(color.FgHiBlack)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen)
)

func newChatCmd() *cobra.Command {
	var (
		name    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "chat <file.pdf> [file.pdf...]",
		Short: "Chat with one or more PDFs in the terminal",
		Long:  "Loads the given PDFs into a fresh session and starts an interactive chat. Type /help for commands.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, args, name, timeout)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "session name")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "inactivity timeout (defaults to SESSION_TIMEOUT_MINUTES)")
	return cmd
}

func runChat(cmd *cobra.Command, files []string, name string, timeout time.Duration) error {
	ctx := cmd.Context()
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	log := logger.NewFileLogger(cfg.LogFilePath)
	defer log.Sync()

	llmClient, err := app.NewLLM(ctx, cfg)
	if err != nil {
		return fmt.Errorf("couldn't initialize the completion client, %w", err)
	}
	defer llmClient.Close()

	extractor, _ := app.NewExtractor(cfg, log)
	registry := app.NewRegistry(cfg, session.Deps{
		Extractor: extractor,
		LLM:       llmClient,
		Publisher: events.Nop{},
		Logger:    log,
	})
	defer registry.Shutdown()

	s, err := registry.Create(ctx, session.CreateOptions{Name: name, Timeout: timeout})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if loadFiles(ctx, s, files, out) == 0 {
		return session.ErrNoDocumentLoaded
	}
	return chatLoop(ctx, s, cmd.InOrStdin(), out)
}

// loadFiles attaches every readable PDF to s and returns how many loaded.
func loadFiles(ctx context.Context, s *session.ChatSession, files []string, out io.Writer) int {
	loaded := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			errorColor.Fprintf(out, "✗ %s: %v\n", path, err)
			continue
		}
		info, err := s.LoadDocument(ctx, filepath.Base(path), data)
		if err != nil {
			errorColor.Fprintf(out, "✗ %s: [%s] %v\n", path, session.KindOf(err), err)
			continue
		}
		successColor.Fprintf(out, "✓ %s (%d pages, ~%d tokens, %s)\n",
			info.Filename, info.PageCount, info.EstimatedTokens, info.ExtractionMethod)
		loaded++
	}
	return loaded
}

func chatLoop(ctx context.Context, s *session.ChatSession, in io.Reader, out io.Writer) error {
	infoColor.Fprintf(out, "Session %s ready. Type /help for commands.\n", s.ID())

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		promptColor.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := runCommand(ctx, s, line, out)
			if err != nil || quit {
				return err
			}
			continue
		}

		report, err := s.SendMessage(ctx, line)
		if err != nil {
			errorColor.Fprintf(out, "[%s] %v\n", session.KindOf(err), err)
			if errors.Is(err, session.ErrSessionExpired) {
				return err
			}
			continue
		}

		replyColor.Fprintf(out, "%s\n", report.ReplyText)
		infoColor.Fprintf(out, "(%d tokens, session total %d, %.2f%% of model limit)\n",
			report.ExchangeTokens, report.SessionTotalTokens, report.PercentageOfModelLimit)
		if report.HighUsage {
			warnColor.Fprintln(out, "This exchange used more than half of the model's context window.")
		}
		if report.SuggestNewSession {
			warnColor.Fprintln(out, "The conversation is getting long, consider starting a new session.")
		}
	}
}

// runCommand executes a slash command and reports whether the loop should end.
func runCommand(ctx context.Context, s *session.ChatSession, line string, out io.Writer) (bool, error) {
	switch strings.Fields(line)[0] {
	case "/quit", "/exit":
		infoColor.Fprintln(out, "bye")
		return true, nil
	case "/clear":
		if err := s.ClearHistory(ctx); err != nil {
			errorColor.Fprintf(out, "[%s] %v\n", session.KindOf(err), err)
			if errors.Is(err, session.ErrSessionExpired) {
				return true, err
			}
			return false, nil
		}
		successColor.Fprintln(out, "History cleared.")
	case "/docs":
		for _, d := range s.Documents() {
			fmt.Fprintf(out, "  %s  %d pages  ~%d tokens  %s\n", d.Filename, d.PageCount, d.EstimatedTokens, d.ExtractionMethod)
		}
	case "/stats":
		st := s.Stats()
		fmt.Fprintf(out, "  messages:  %d\n", st.MessageCount)
		fmt.Fprintf(out, "  exchanges: %d\n", st.ExchangeCount)
		fmt.Fprintf(out, "  tokens:    %d (%.2f%% of %d)\n", st.TotalTokensUsed, st.PercentageOfModelLimit, st.ModelTokenLimit)
		fmt.Fprintf(out, "  documents: %d (~%d tokens)\n", len(st.Documents), st.DocumentTokens)
	case "/help":
		fmt.Fprintln(out, "  /docs   list loaded documents")
		fmt.Fprintln(out, "  /stats  show token usage")
		fmt.Fprintln(out, "  /clear  forget the conversation, keep the documents")
		fmt.Fprintln(out, "  /quit   leave")
	default:
		warnColor.Fprintf(out, "unknown command %s, try /help\n", line)
	}
	return false, nil
}
