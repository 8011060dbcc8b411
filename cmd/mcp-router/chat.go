package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newChatCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Answer queries interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := bootstrap(ctx, flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()
			return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a.router, a.manager)
		},
	}
}

type queryProcessor interface {
	Process(ctx context.Context, query string) string
}

type templateDescriber interface {
	DescribeTemplates(ctx context.Context, serverID string) string
}

const chatBanner = `Enter your query (or type 'exit' to quit):
Special commands:
- 'list templates': List available templates on all servers
- 'list templates <server_name>': List templates on a specific server
`

// runChat reads one query per line until "exit" or end of input.
func runChat(ctx context.Context, in io.Reader, out io.Writer, p queryProcessor, t templateDescriber) error {
	fmt.Fprint(out, chatBanner)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "exit"):
			return nil
		case isListTemplates(line):
			fields := strings.Fields(line)
			server := ""
			if len(fields) > 2 {
				server = fields[2]
			}
			fmt.Fprintln(out, t.DescribeTemplates(ctx, server))
		default:
			fmt.Fprintln(out, p.Process(ctx, line))
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// isListTemplates matches "list templates" as the first two words.
func isListTemplates(line string) bool {
	fields := strings.Fields(line)
	return len(fields) >= 2 &&
		strings.EqualFold(fields[0], "list") &&
		strings.EqualFold(fields[1], "templates")
}
