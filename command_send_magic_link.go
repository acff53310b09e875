package session

import (
	"context"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// SendMagicLinkMessage asks for a sign-in or sign-up link to be mailed out.
type SendMagicLinkMessage struct {
	Email   string `json:"email" form:"email"`
	Trusted bool   `json:"remember_me" form:"remember_me"`
}

func (e SendMagicLinkMessage) Type() string { return "session.send_magic_link" }

// Validate will run validation rules
func (e SendMagicLinkMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(
			&e.Email,
			validation.Required,
			is.Email,
		),
	)
}

// SendMagicLinkHandler mails out magic links. One standing check
// decides the link flavor: a known account in good standing gets a
// ready token pair, an unknown address gets a sign-up token, and a
// suspended account gets nothing.
type SendMagicLinkHandler struct {
	codec    *TokenCodec
	store    IdentityStore
	mailer   Mailer
	renderer *MailRenderer
	baseURL  string
	logger   Logger
	now      func() time.Time
}

// NewSendMagicLinkHandler wires the handler. baseURL is the absolute
// address of the sign-in page the link should land on.
func NewSendMagicLinkHandler(codec *TokenCodec, store IdentityStore, mailer Mailer, renderer *MailRenderer, baseURL string, logger Logger) *SendMagicLinkHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &SendMagicLinkHandler{
		codec:    codec,
		store:    store,
		mailer:   mailer,
		renderer: renderer,
		baseURL:  baseURL,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *SendMagicLinkHandler) Execute(ctx context.Context, event SendMagicLinkMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled while sending magic link",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SendMagicLinkHandler) execute(ctx context.Context, event SendMagicLinkMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	link, err := h.buildLink(ctx, event)
	if err != nil {
		return err
	}

	html, err := h.renderer.RenderMagicLink(link)
	if err != nil {
		return err
	}

	if err := h.mailer.Send(ctx, Email{
		To:      event.Email,
		Subject: "Confirm your email address",
		HTML:    html,
		Text:    "Confirm your email address and sign in: " + link,
	}); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to deliver magic link")
	}

	if id, err := hashid.NewUUID(event.Email); err == nil {
		h.logger.Info("magic link sent for account %s", id)
	}

	return nil
}

// buildLink performs the single standing check and mints the link
// tokens. Known accounts receive a whole pair so the landing page can
// sign in without an exchange; unknown addresses get a sign-up token.
func (h *SendMagicLinkHandler) buildLink(ctx context.Context, event SendMagicLinkMessage) (string, error) {
	base, err := url.Parse(h.baseURL)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "magic link base URL is invalid")
	}
	q := base.Query()

	profile, err := h.lookup(ctx, event.Email)
	switch {
	case err == nil && profile.Suspended(h.now()):
		return "", goerrors.Wrap(ErrUserSuspended, ErrUserSuspended.Category, ErrUserSuspended.Message).
			WithTextCode(ErrUserSuspended.TextCode)

	case err == nil:
		pair, err := h.codec.IssuePair(event.Email, event.Trusted)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint sign-in pair")
		}
		q.Set(AuthTokenParam, pair.Auth)
		q.Set(RefreshTokenParam, pair.Refresh)

	case goerrors.Is(err, ErrUserNotFound):
		token, err := h.codec.Issue(PurposeSignUp, event.Email, event.Trusted)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint sign-up token")
		}
		q.Set(SignUpTokenParam, token)
		q.Set("sign-up", "true")

	default:
		return "", goerrors.Wrap(err, goerrors.CategoryExternal, "standing check failed")
	}

	base.RawQuery = q.Encode()
	return base.String(), nil
}

func (h *SendMagicLinkHandler) lookup(ctx context.Context, email string) (*UserProfile, error) {
	if h.store == nil {
		return nil, ErrUserNotFound
	}
	return h.store.GetUser(ctx, email, FieldStanding, FieldSuspendedUntil)
}
