package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/shift-swap/internal/shift"
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Create a shift post",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApplication(cmd, func(ctx context.Context, a *application) error {
			date, err := shift.ResolveDate(flag(cmd, "date"), time.Now())
			if err != nil {
				return err
			}

			origin := shift.IntentNone
			if raw := flag(cmd, "origin"); raw != "" {
				if origin = shift.ParseIntent(raw); !origin.Known() {
					return fmt.Errorf("unknown origin %q, expected seeking or offering", raw)
				}
			}

			post, err := a.service.CreatePost(ctx, shift.PostInput{
				User:   flag(cmd, "user"),
				Role:   flag(cmd, "role"),
				Date:   date,
				Shift:  flag(cmd, "shift"),
				Notes:  shift.TaggedNotes(origin, flag(cmd, "notes")),
				Origin: origin,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), post)
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List open posts, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApplication(cmd, func(ctx context.Context, a *application) error {
			if matches, _ := cmd.Flags().GetBool("matches"); matches {
				list, err := a.service.ListMatches(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), list)
			}

			posts, err := a.service.ListOpenPosts(ctx)
			if err != nil {
				return err
			}
			a.logger.Info("open posts", zap.Int("count", len(posts)))
			return printJSON(cmd.OutOrStdout(), posts)
		})
	},
}

var matchCmd = &cobra.Command{
	Use:   "match <post-id>",
	Short: "Suggest the best candidate to swap with a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(ctx context.Context, a *application) error {
			suggestion, err := a.service.SuggestSwap(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), suggestion)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <post-id> <matched|completed>",
	Short: "Move a post forward in its lifecycle",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(ctx context.Context, a *application) error {
			post, err := a.service.UpdateStatus(ctx, args[0], shift.Status(strings.ToLower(args[1])))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), post)
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every post and match",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			confirm := promptui.Prompt{Label: "Remove all posts and matches", IsConfirm: true}
			if _, err := confirm.Run(); err != nil {
				if errors.Is(err, promptui.ErrAbort) {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
				return err
			}
		}

		return withApplication(cmd, func(ctx context.Context, a *application) error {
			return a.service.Clear(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(postCmd, listCmd, matchCmd, statusCmd, clearCmd)

	postCmd.Flags().StringP("user", "u", "", "who posts the shift")
	postCmd.Flags().StringP("role", "r", "", "role of the user")
	postCmd.Flags().String("date", "", "YYYY-MM-DD, today, tomorrow or a weekday")
	postCmd.Flags().StringP("shift", "s", "", "HH:MM-HH:MM, morning, afternoon or evening")
	postCmd.Flags().StringP("notes", "n", "", "free-form notes")
	postCmd.Flags().String("origin", "", "seeking or offering (default none)")
	for _, name := range []string{"user", "role", "date", "shift"} {
		_ = postCmd.MarkFlagRequired(name)
	}

	listCmd.Flags().BoolP("matches", "m", false, "list recorded matches instead of open posts")

	clearCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

// withApplication runs fn with a fresh application that logs to stderr.
func withApplication(cmd *cobra.Command, fn func(context.Context, *application) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApplication(ctx, "stderr")
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func flag(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return strings.TrimSpace(v)
}

func printJSON(w io.Writer, v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(pretty))
	return err
}
