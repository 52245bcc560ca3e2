package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"folio/api/internal/content"
)

type postFlags struct {
	title        string
	description  string
	tags         []string
	cover        string
	postOfTheDay bool
	body         string
	bodyFile     string
}

func (p *postFlags) register(cmd *cobra.Command, withTitle bool) {
	flags := cmd.Flags()
	if withTitle {
		flags.StringVar(&p.title, "title", "", "post title (changes the slug)")
	}
	flags.StringVarP(&p.description, "description", "d", "", "short description")
	flags.StringSliceVarP(&p.tags, "tags", "t", nil, "comma separated tags")
	flags.StringVar(&p.cover, "cover", "", "cover image URL")
	flags.BoolVar(&p.postOfTheDay, "post-of-the-day", false, "feature the post")
	flags.StringVarP(&p.body, "body", "b", "", "markdown body")
	flags.StringVarP(&p.bodyFile, "body-file", "f", "", "read the markdown body from a file (- for stdin)")
}

// readBody resolves --body and --body-file. ok is false when neither was given.
func (p *postFlags) readBody(cmd *cobra.Command) (string, bool, error) {
	if p.bodyFile == "" {
		return p.body, cmd.Flags().Changed("body"), nil
	}
	if cmd.Flags().Changed("body") {
		return "", false, &ExitError{Code: ExitCommandError, Message: "use either --body or --body-file"}
	}
	var (
		data []byte
		err  error
	)
	if p.bodyFile == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(p.bodyFile)
	}
	if err != nil {
		return "", false, fmt.Errorf("read body: %w", err)
	}
	return string(data), true, nil
}

func newListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List published posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			posts, err := opts.library(out).List()
			if err != nil {
				return out.Fail(err)
			}
			return out.Success(posts, postList(posts, "No posts"))
		},
	}
}

func newDraftsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drafts",
		Short: "List drafts, most recently edited first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			drafts, err := opts.library(out).ListDrafts()
			if err != nil {
				return out.Fail(err)
			}
			return out.Success(drafts, postList(drafts, "No drafts"))
		},
	}
}

func newCreateCommand(opts *RootOptions, use, short string, draft bool) *cobra.Command {
	flags := &postFlags{}
	cmd := &cobra.Command{
		Use:   use + " <title>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			body, _, err := flags.readBody(cmd)
			if err != nil {
				return out.Fail(err)
			}
			in := content.NewPost{
				Title:        args[0],
				Description:  flags.description,
				Tags:         flags.tags,
				CoverImage:   flags.cover,
				PostOfTheDay: flags.postOfTheDay,
				Body:         body,
			}
			lib := opts.library(out)
			var post content.Post
			if draft {
				post, err = lib.SaveDraft(in)
			} else {
				post, err = lib.Create(in)
			}
			if err != nil {
				return out.Fail(err)
			}
			verb := "Published"
			if draft {
				verb = "Saved draft"
			}
			return out.Success(post, fmt.Sprintf("%s %s", verb, post.Slug))
		},
	}
	flags.register(cmd, false)
	return cmd
}

func newUpdateCommand(opts *RootOptions, use, short string, draft bool) *cobra.Command {
	flags := &postFlags{}
	cmd := &cobra.Command{
		Use:   use + " <slug>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			patch, err := flags.patch(cmd)
			if err != nil {
				return out.Fail(err)
			}
			lib := opts.library(out)
			var post content.Post
			if draft {
				post, err = lib.UpdateDraft(args[0], patch)
			} else {
				post, err = lib.Update(args[0], patch)
			}
			if err != nil {
				return out.Fail(err)
			}
			text := "Updated " + post.Slug
			if post.Slug != args[0] {
				text += " (was " + args[0] + ")"
			}
			return out.Success(post, text)
		},
	}
	flags.register(cmd, true)
	return cmd
}

// patch includes only the flags that were set on the command line.
func (p *postFlags) patch(cmd *cobra.Command) (content.Patch, error) {
	changed := cmd.Flags().Changed
	var patch content.Patch
	if changed("title") {
		patch.Title = &p.title
	}
	if changed("description") {
		patch.Description = &p.description
	}
	if changed("tags") {
		patch.Tags = append([]string{}, p.tags...)
	}
	if changed("cover") {
		patch.CoverImage = &p.cover
	}
	if changed("post-of-the-day") {
		patch.PostOfTheDay = &p.postOfTheDay
	}
	body, ok, err := p.readBody(cmd)
	if err != nil {
		return content.Patch{}, err
	}
	if ok {
		patch.Body = &body
	}
	return patch, nil
}

type slugAction func(lib *content.Library, slug string) (any, string, error)

func newSlugCommand(opts *RootOptions, use, short string, action slugAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <slug>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			data, text, err := action(opts.library(out), args[0])
			if err != nil {
				return out.Fail(err)
			}
			return out.Success(data, text)
		},
	}
}

func publish(lib *content.Library, slug string) (any, string, error) {
	post, err := lib.Publish(slug)
	return post, "Published " + slug, err
}

func unpublish(lib *content.Library, slug string) (any, string, error) {
	post, err := lib.Unpublish(slug)
	return post, "Moved " + slug + " to drafts", err
}

func trash(lib *content.Library, slug string) (any, string, error) {
	post, err := lib.MoveToTrash(slug)
	return post, "Moved " + slug + " to the trash", err
}

func restore(lib *content.Library, slug string) (any, string, error) {
	post, err := lib.Restore(slug)
	return post, "Restored " + slug, err
}

func deleteDraft(lib *content.Library, slug string) (any, string, error) {
	err := lib.DeleteDraft(slug)
	return map[string]string{"slug": slug}, "Deleted draft " + slug, err
}

func newEmptyTrashCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "empty-trash",
		Short: "Delete every trashed post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			n, err := opts.library(out).EmptyTrash()
			if err != nil {
				return out.Fail(err)
			}
			return out.Success(map[string]int{"deleted": n}, fmt.Sprintf("Deleted %d trashed post(s)", n))
		},
	}
}
