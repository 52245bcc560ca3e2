// Package email sends notification mail over SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

var ErrNotConfigured = errors.New("email not configured")

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	SiteName string
	SiteURL  string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
}

func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	if config.SiteName == "" {
		config.SiteName = "Folio"
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendHTMLEmail sends a multipart message with a plain-text fallback.
func (s *Service) SendHTMLEmail(to []string, subject, textBody, htmlBody string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	boundary := "folio-boundary"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", headerSafe(subject))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", textBody)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", htmlBody)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	if err := s.send(s.server, s.auth, s.config.From, to, msg.Bytes()); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

type ReplyData struct {
	SiteName    string
	RecipientTo string
	ReplierName string
	PostTitle   string
	PostURL     string
	Excerpt     string
}

// SendReplyNotification tells a comment author that someone answered them.
func (s *Service) SendReplyNotification(to, recipientName, replierName, postTitle, postSlug, content string) error {
	data := ReplyData{
		SiteName:    s.config.SiteName,
		RecipientTo: recipientName,
		ReplierName: replierName,
		PostTitle:   postTitle,
		PostURL:     strings.TrimRight(s.config.SiteURL, "/") + "/blog/" + postSlug,
		Excerpt:     excerpt(content, 280),
	}
	html, err := render(replyTemplate, data)
	if err != nil {
		return fmt.Errorf("render reply template: %w", err)
	}
	subject := fmt.Sprintf("%s replied to your comment on %s", replierName, postTitle)
	text := fmt.Sprintf("%s replied to your comment:\n\n%s\n\n%s", replierName, data.Excerpt, data.PostURL)
	return s.SendHTMLEmail([]string{to}, subject, text, html)
}

type ProjectRequest struct {
	Name    string
	Email   string
	Message string
}

// SendProjectRequest forwards a contact form submission to the site owner.
func (s *Service) SendProjectRequest(to string, req ProjectRequest) error {
	html, err := render(projectRequestTemplate, req)
	if err != nil {
		return fmt.Errorf("render project request template: %w", err)
	}
	subject := "New Project Request: " + req.Name
	text := fmt.Sprintf("From: %s <%s>\n\n%s", req.Name, req.Email, req.Message)
	return s.SendHTMLEmail([]string{to}, subject, text, html)
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func excerpt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

var replyTemplate = template.Must(template.New("reply").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New reply on {{.SiteName}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        blockquote { border-left: 3px solid #0066cc; margin: 20px 0; padding: 4px 16px; color: #555; }
        .button { display: inline-block; padding: 12px 24px; background: #0066cc; color: white; text-decoration: none; border-radius: 4px; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <p>Hi {{.RecipientTo}},</p>
    <p><strong>{{.ReplierName}}</strong> replied to your comment on <em>{{.PostTitle}}</em>:</p>
    <blockquote>{{.Excerpt}}</blockquote>
    <p><a href="{{.PostURL}}" class="button">View the conversation</a></p>
    <div class="footer"><p>You received this because you commented on {{.SiteName}}.</p></div>
</body>
</html>`))

var projectRequestTemplate = template.Must(template.New("project-request").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New project request</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .pitch { white-space: pre-wrap; background: #f6f8fa; padding: 16px; border-radius: 4px; }
    </style>
</head>
<body>
    <h2>New project request from {{.Name}}</h2>
    <p>Reply to <a href="mailto:{{.Email}}">{{.Email}}</a></p>
    <div class="pitch">{{.Message}}</div>
</body>
</html>`))
