package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
)

// Email is an outbound message.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers outbound email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, email Email) error

func (f MailerFunc) Send(ctx context.Context, email Email) error {
	if f == nil {
		return nil
	}
	return f(ctx, email)
}

// MailRenderer renders the email bodies from the embedded templates.
type MailRenderer struct {
	engine *django.Engine
}

// NewMailRenderer loads the embedded email templates.
func NewMailRenderer() (*MailRenderer, error) {
	templates, err := fs.Sub(GetTemplatesFS(), "data/templates")
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to root email templates")
	}

	engine := django.NewFileSystem(http.FS(templates), ".html")
	if err := engine.Load(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load email templates")
	}
	return &MailRenderer{engine: engine}, nil
}

// RenderMagicLink renders the sign-up magic link email body.
func (r *MailRenderer) RenderMagicLink(link string) (string, error) {
	var buf bytes.Buffer
	err := r.engine.Render(&buf, "magic_link", map[string]any{
		"link": link,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to render magic link email")
	}
	return buf.String(), nil
}

type mailPayload struct {
	From    mailAddress   `json:"from"`
	To      []mailAddress `json:"to"`
	Subject string        `json:"subject"`
	HTML    string        `json:"html,omitempty"`
	Text    string        `json:"text,omitempty"`
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// HTTPMailer delivers email through a Mailtrap style JSON API.
type HTTPMailer struct {
	Endpoint string
	Token    string
	From     string
	FromName string
	Client   *http.Client
	Logger   Logger
}

func NewHTTPMailer(endpoint, token, from string) *HTTPMailer {
	return &HTTPMailer{
		Endpoint: endpoint,
		Token:    token,
		From:     from,
		Client:   http.DefaultClient,
		Logger:   defLogger{},
	}
}

// Send posts the message to the delivery API.
func (m *HTTPMailer) Send(ctx context.Context, email Email) error {
	body, err := json.Marshal(mailPayload{
		From:    mailAddress{Email: m.From, Name: m.FromName},
		To:      []mailAddress{{Email: email.To}},
		Subject: email.Subject,
		HTML:    email.HTML,
		Text:    email.Text,
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode email payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to build email request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.Token)

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "email delivery request failed")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return errors.New("email delivery rejected", errors.CategoryExternal).
			WithMetadata(map[string]any{
				"status":   res.StatusCode,
				"response": string(snippet),
			})
	}

	return nil
}
