// Package cli implements folioctl, the command line for writing, publishing
// and retiring posts in a content directory.
package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"folio/api/internal/config"
	"folio/api/internal/content"
	"folio/api/internal/gitrepo"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	ContentDir  string
	ReposDir    string
	AuthorName  string
	AuthorEmail string
	APIURL      string
	APIToken    string

	now func() time.Time
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates folioctl. Flag defaults come from cfg.
func NewRootCommand(cfg config.Config) *cobra.Command {
	return newRootCommand(cfg, &RootOptions{})
}

func newRootCommand(cfg config.Config, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folioctl",
		Short: "Manage folio posts",
		Long: `Create, edit, publish and retire the markdown posts served by the folio API.

Every change is written to the content directory and committed to the
post's revision history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return &ExitError{
					Code:    ExitCommandError,
					Message: fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats),
				}
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ContentDir, "content-dir", cfg.ContentDir, "content directory")
	flags.StringVar(&opts.ReposDir, "repos-dir", cfg.ReposDir, "revision history directory (empty disables history)")
	flags.StringVar(&opts.AuthorName, "author", cfg.AuthorName, "commit author name")
	flags.StringVar(&opts.AuthorEmail, "author-email", cfg.AuthorEmail, "commit author email")

	cmd.AddCommand(
		newListCommand(opts),
		newCreateCommand(opts, "new", "Publish a new post", false),
		newCreateCommand(opts, "draft", "Save a new draft", true),
		newDraftsCommand(opts),
		newUpdateCommand(opts, "update", "Edit a published post", false),
		newUpdateCommand(opts, "update-draft", "Edit a draft", true),
		newSlugCommand(opts, "publish", "Publish a draft", publish),
		newSlugCommand(opts, "unpublish", "Move a published post back to drafts", unpublish),
		newSlugCommand(opts, "trash", "Move a published post to the trash", trash),
		newSlugCommand(opts, "restore", "Restore a trashed post", restore),
		newSlugCommand(opts, "delete-draft", "Delete a draft permanently", deleteDraft),
		newEmptyTrashCommand(opts),
		newCommentsCommand(cfg, opts),
	)
	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// library opens the content directory, journaling writes to git when a
// repos directory is configured.
func (o *RootOptions) library(out *OutputFormatter) *content.Library {
	var libOpts []content.Option
	if o.ReposDir != "" {
		author := gitrepo.Author{Name: o.AuthorName, Email: o.AuthorEmail}
		libOpts = append(libOpts, content.WithJournal(gitrepo.New(o.ReposDir).Journal(author)))
		out.VerboseLog("recording history in %s", o.ReposDir)
	}
	if o.now != nil {
		libOpts = append(libOpts, content.WithClock(o.now))
	}
	out.VerboseLog("content directory %s", o.ContentDir)
	return content.NewLibrary(o.ContentDir, libOpts...)
}
