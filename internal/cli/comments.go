package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"folio/api/internal/client"
	"folio/api/internal/comments"
	"folio/api/internal/config"
)

// newCommentsCommand groups the commands that read and moderate comment
// threads on a running API.
func newCommentsCommand(cfg config.Config, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Read and manage post comments through the API",
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.APIURL, "api", cfg.APIURL, "base URL of the folio API")
	flags.StringVar(&opts.APIToken, "token", cfg.APIToken, "access token (required for changes)")

	var parent string
	add := &cobra.Command{
		Use:   "add <post-slug> <content>",
		Short: "Comment on a post, or reply with --parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			var parentID *string
			if parent != "" {
				parentID = &parent
			}
			comment, err := opts.commentView(out).Create(cmd.Context(), args[0], args[1], parentID)
			if err != nil {
				return out.Fail(err)
			}
			return out.Success(comment, fmt.Sprintf("Added comment %s to %s", comment.ID, args[0]))
		},
	}
	add.Flags().StringVar(&parent, "parent", "", "id of the comment to reply to")

	var unpin bool
	pin := &cobra.Command{
		Use:   "pin <comment-id>",
		Short: "Pin one of your top-level comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			comment, err := opts.commentView(out).TogglePin(cmd.Context(), args[0], !unpin)
			if err != nil {
				return out.Fail(err)
			}
			verb := "Pinned"
			if !comment.IsPinned {
				verb = "Unpinned"
			}
			return out.Success(comment, verb+" "+comment.ID)
		},
	}
	pin.Flags().BoolVar(&unpin, "unpin", false, "remove the pin instead")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <post-slug>",
			Short: "Show a post's comment thread",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				out := opts.formatter(cmd)
				forest, err := opts.commentView(out).Open(cmd.Context(), args[0])
				if err != nil {
					return out.Fail(err)
				}
				return out.Success(forest, threadText(forest))
			},
		},
		add,
		&cobra.Command{
			Use:   "edit <comment-id> <content>",
			Short: "Replace the text of one of your comments",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				out := opts.formatter(cmd)
				comment, err := opts.commentView(out).Edit(cmd.Context(), args[0], args[1])
				if err != nil {
					return out.Fail(err)
				}
				return out.Success(comment, "Edited "+comment.ID)
			},
		},
		&cobra.Command{
			Use:   "delete <comment-id>",
			Short: "Delete one of your comments, hiding its replies",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				out := opts.formatter(cmd)
				if err := opts.commentView(out).Delete(cmd.Context(), args[0]); err != nil {
					return out.Fail(err)
				}
				return out.Success(map[string]string{"id": args[0]}, "Deleted "+args[0])
			},
		},
		pin,
	)
	return cmd
}

func (o *RootOptions) commentView(out *OutputFormatter) *comments.View {
	out.VerboseLog("comment API %s", o.APIURL)
	return comments.NewView(client.New(o.APIURL, client.WithToken(o.APIToken)))
}

func threadText(forest comments.Forest) string {
	if len(forest) == 0 {
		return "No comments"
	}
	var lines []string
	var walk func(nodes []comments.Node, depth int)
	walk = func(nodes []comments.Node, depth int) {
		for _, node := range nodes {
			lines = append(lines, commentLine(node.Comment, depth))
			walk(node.Replies, depth+1)
		}
	}
	walk(forest, 0)
	return strings.Join(lines, "\n")
}

func commentLine(c comments.Comment, depth int) string {
	line := fmt.Sprintf("%s%s  %s  %s: %s",
		strings.Repeat("  ", depth),
		c.CreatedAt.UTC().Format("2006-01-02 15:04"),
		c.ID,
		c.Author.Name,
		strings.Join(strings.Fields(c.Content), " "),
	)
	if c.IsPinned {
		line += "  [pinned]"
	}
	return line
}
