package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"folio/api/internal/comments"
	"folio/api/internal/content"
)

// Exit codes for folioctl.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the library or API refused the change (missing post, slug clash, not the author)
	ExitCommandError = 2 // bad input or an I/O failure
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// GetExitCode extracts the exit code from err, defaulting to ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

type Response struct {
	Status string         `json:"status"`
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success prints data. In text mode text is printed instead.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

func (f *OutputFormatter) Error(code, message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error:  &ResponseError{Code: code, Message: message},
		})
	}
	_, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return err
}

func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// Fail reports err in the configured format and converts it to an ExitError.
func (f *OutputFormatter) Fail(err error) error {
	code, exit := classify(err)
	if writeErr := f.Error(code, err.Error()); writeErr != nil {
		return &ExitError{Code: ExitCommandError, Message: "write output", Err: writeErr}
	}
	return &ExitError{Code: exit, Message: code, Err: err}
}

func classify(err error) (string, int) {
	var commentErr *comments.Error
	if errors.As(err, &commentErr) {
		switch commentErr.Kind {
		case comments.KindValidation, comments.KindStoreFailure:
			return string(commentErr.Kind), ExitCommandError
		default:
			return string(commentErr.Kind), ExitFailure
		}
	}
	switch {
	case errors.Is(err, content.ErrPostNotFound), errors.Is(err, content.ErrDraftNotFound):
		return "NOT_FOUND", ExitFailure
	case errors.Is(err, content.ErrPostExists):
		return "ALREADY_EXISTS", ExitFailure
	case errors.Is(err, content.ErrTitleRequired):
		return "TITLE_REQUIRED", ExitCommandError
	default:
		return "COMMAND_ERROR", ExitCommandError
	}
}

func postLine(post content.Post) string {
	line := fmt.Sprintf("%s  %-32s %s", post.Date.UTC().Format("2006-01-02"), post.Slug, post.Title)
	if len(post.Tags) > 0 {
		line += "  [" + strings.Join(post.Tags, ", ") + "]"
	}
	return line
}

func postList(posts []content.Post, empty string) string {
	if len(posts) == 0 {
		return empty
	}
	lines := make([]string, len(posts))
	for i, post := range posts {
		lines[i] = postLine(post)
	}
	return strings.Join(lines, "\n")
}
