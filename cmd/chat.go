package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/spigell/shift-swap/internal/matching"
)

const (
	PromptContinue = "New request"
	PromptSwap     = "Ask for the best swap for this post"
	PromptQuit     = "Quit"
)

var errQuit = errors.New("quit requested")

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Describe what you need in plain words and get matched",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApplication(cmd, func(ctx context.Context, a *application) error {
			user, err := askIfEmpty(flag(cmd, "user"), "Your name")
			if err != nil {
				return err
			}
			role, err := askIfEmpty(flag(cmd, "role"), "Your role")
			if err != nil {
				return err
			}

			schedule := ""
			if path := flag(cmd, "schedule"); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading schedule: %w", err)
				}
				schedule = string(data)
			}

			out := cmd.OutOrStdout()
			for {
				err := chatTurn(ctx, a, out, matching.IntelligentRequest{User: user, Role: role, Schedule: schedule})
				if errors.Is(err, errQuit) || errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
					return nil
				}
				if err != nil {
					return err
				}
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("user", "u", "", "your name (asked when empty)")
	chatCmd.Flags().StringP("role", "r", "", "your role (asked when empty)")
	chatCmd.Flags().String("schedule", "", "file listing your shifts, one per line")
}

func chatTurn(ctx context.Context, a *application, out io.Writer, req matching.IntelligentRequest) error {
	message, err := (&promptui.Prompt{Label: "What do you need"}).Run()
	if err != nil {
		return err
	}
	if strings.TrimSpace(message) == "" {
		return nil
	}
	req.Message = message

	outcome, err := a.service.IntelligentMatch(ctx, req)
	if err != nil {
		return err
	}
	printOutcome(out, outcome)

	if outcome.NeedsMoreInfo || outcome.Shift == nil {
		return nil
	}

	_, action, err := (&promptui.Select{
		Label: "Next",
		Items: []string{PromptContinue, PromptSwap, PromptQuit},
	}).Run()
	if err != nil {
		return err
	}

	switch action {
	case PromptSwap:
		suggestion, err := a.service.SuggestSwap(ctx, outcome.Shift.ID)
		if err != nil {
			return err
		}
		printSuggestion(out, suggestion)
		return nil
	case PromptQuit:
		return errQuit
	default:
		return nil
	}
}

func printOutcome(w io.Writer, o matching.Outcome) {
	fmt.Fprintln(w, o.Message)
	if o.Summary != "" {
		fmt.Fprintln(w, o.Summary)
	}
	for i, m := range o.Matches {
		fmt.Fprintf(w, "  %d. %s (%s) %s %s: %s\n", i+1, m.User, m.Role, m.Date, m.Shift, m.Reason)
	}
	if o.Suggestion != "" {
		fmt.Fprintln(w, o.Suggestion)
	}
}

func printSuggestion(w io.Writer, s matching.SwapSuggestion) {
	switch {
	case s.NoCandidates:
		fmt.Fprintln(w, s.Reason)
	case s.Fallback:
		fmt.Fprintf(w, "Suggested: %s (fallback). %s\n", s.CandidateUser, s.Reason)
	default:
		fmt.Fprintf(w, "Suggested: %s. %s\n", s.CandidateUser, s.Reason)
	}
}

func askIfEmpty(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	answer, err := (&promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("required")
			}
			return nil
		},
	}).Run()
	return strings.TrimSpace(answer), err
}
