package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/journalbot/internal/rulestore"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "journalbot-cli",
		Short: "JournalBot CLI tool",
		Long:  `A command line interface for interacting with the JournalBot API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the JournalBot API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "Request timeout")

	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func processCmd() *cobra.Command {
	var entryDate string

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Process a document file into a journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}

			payload := map[string]string{
				"filename": args[0],
				"content":  string(content),
			}
			if entryDate != "" {
				payload["entry_date"] = entryDate
			}

			return postJSON("/api/v1/documents/process", payload)
		},
	}

	cmd.Flags().StringVar(&entryDate, "entry-date", "", "Override entry date (YYYY-MM-DD)")

	return cmd
}

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Accounting rule operations",
	}

	cmd.AddCommand(rulesValidateCmd())

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the active rule set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON("/api/v1/rules/")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reload",
		Short: "Reload rules from disk on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON("/api/v1/rules/reload", nil)
		},
	})

	return cmd
}

func rulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rules.yaml>",
		Short: "Validate a rule file locally without a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rulestore.Load(args[0])
			if err != nil {
				return err
			}

			snap := store.Snapshot()
			fmt.Printf("OK: %d rules\n", snap.Len())
			for _, rule := range snap.Rules() {
				fmt.Printf("  %-30s %-18s %d lines, keywords: %s\n",
					rule.ID, rule.Category, len(rule.Lines), truncate(fmt.Sprint(rule.Keywords), 40))
			}
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show processing statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON("/api/v1/stats")
		},
	}
}

func getJSON(path string) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return renderResponse(resp)
}

func postJSON(path string, payload any) error {
	body := []byte("{}")
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return renderResponse(resp)
}

func renderResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("unexpected response (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	printJSON(decoded)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%+v\n", v)
		return
	}
	fmt.Println(string(out))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
