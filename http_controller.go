package session

import (
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// ControllerRoutes names the endpoints the controller registers.
type ControllerRoutes struct {
	Email   string
	Resolve string
	Refresh string
	SignOut string
}

// Controller exposes the resolver over HTTP.
type Controller struct {
	Debug      bool
	Logger     Logger
	Routes     *ControllerRoutes
	Resolver   *Resolver
	Codec      *TokenCodec
	Cookies    *CookieWriter
	Storage    Storage
	MagicLinks *SendMagicLinkHandler
	Sink       ActivitySink
}

type ControllerOption func(*Controller) *Controller

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerStorage(storage Storage) ControllerOption {
	return func(c *Controller) *Controller {
		c.Storage = storage
		return c
	}
}

func WithControllerSink(sink ActivitySink) ControllerOption {
	return func(c *Controller) *Controller {
		c.Sink = normalizeActivitySink(sink)
		return c
	}
}

func WithControllerResolver(resolver *Resolver) ControllerOption {
	return func(c *Controller) *Controller {
		c.Resolver = resolver
		return c
	}
}

func WithControllerCodec(codec *TokenCodec) ControllerOption {
	return func(c *Controller) *Controller {
		c.Codec = codec
		return c
	}
}

func WithControllerCookies(cookies *CookieWriter) ControllerOption {
	return func(c *Controller) *Controller {
		c.Cookies = cookies
		return c
	}
}

func WithControllerMagicLinks(handler *SendMagicLinkHandler) ControllerOption {
	return func(c *Controller) *Controller {
		c.MagicLinks = handler
		return c
	}
}

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger: defLogger{},
		Sink:   noopActivitySink{},
		Routes: &ControllerRoutes{
			Email:   "/session/email",
			Resolve: "/session/resolve",
			Refresh: "/session/refresh",
			SignOut: "/session/sign-out",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Resolver == nil {
		panic("Missing Resolver in session controller...")
	}

	if c.Codec == nil {
		panic("Missing TokenCodec in session controller...")
	}

	if c.Cookies == nil {
		panic("Missing CookieWriter in session controller...")
	}

	return c
}

// RegisterSessionRoutes mounts the controller on a router.
func RegisterSessionRoutes[T any](app router.Router[T], opts ...ControllerOption) *Controller {
	controller := NewController(opts...)

	app.Post(controller.Routes.Email, controller.EmailPost).
		SetName("session-email.post")

	app.Get(controller.Routes.Resolve, controller.ResolveGet).
		SetName("session-resolve.get")

	app.Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("session-refresh.post")

	app.Post(controller.Routes.SignOut, controller.SignOutPost).
		SetName("session-sign-out.post")

	return controller
}

// EmailRequest is the magic link request payload. Website is a honeypot
// field; anything filling it gets the success response and no email.
type EmailRequest struct {
	Email      string `form:"email" json:"email"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
	Website    string `form:"website" json:"website"`
}

// Validate will run validation rules
func (r EmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *Controller) EmailPost(ctx router.Context) error {
	payload := new(EmailRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "could not parse request",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	if a.Debug {
		fmt.Println("======= SESSION EMAIL ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	if payload.Website != "" {
		a.Logger.Info("honeypot tripped for %s", payload.Email)
		return ctx.JSON(router.StatusOK, map[string]string{"status": "sent"})
	}

	if a.MagicLinks == nil {
		return ctx.JSON(router.StatusServiceUnavailable, map[string]string{
			"error": "sign-up is not available",
		})
	}

	err := a.MagicLinks.Execute(ctx.Context(), SendMagicLinkMessage{
		Email:   payload.Email,
		Trusted: payload.RememberMe,
	})
	if err != nil {
		if goerrors.Is(err, ErrUserSuspended) {
			return ctx.JSON(http.StatusForbidden, failedOutcome(OutcomeUserSuspended, payload.Email))
		}
		a.Logger.Error("magic link delivery failed: %v", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]string{
			"error": "could not send email",
		})
	}

	return ctx.JSON(router.StatusOK, map[string]string{"status": "sent"})
}

// ResolveGet locates credentials on the request and resolves them,
// persisting any fresh tokens on the response.
func (a *Controller) ResolveGet(ctx router.Context) error {
	creds := LocateCredentials(NewRouterSource(ctx, a.Storage))

	outcome := a.Resolver.Resolve(ctx.Context(), creds)
	a.commit(ctx, outcome)

	return ctx.JSON(statusFor(outcome), outcome)
}

// RefreshPost forces a refresh exchange, ignoring any live Auth token.
func (a *Controller) RefreshPost(ctx router.Context) error {
	creds := LocateCredentials(NewRouterSource(ctx, a.Storage))
	creds.Pair.Auth = ""
	creds.SignUp = ""

	outcome := a.Resolver.Resolve(ctx.Context(), creds)
	a.commit(ctx, outcome)

	return ctx.JSON(statusFor(outcome), outcome)
}

func (a *Controller) SignOutPost(ctx router.Context) error {
	// an in-flight resolution must not re-land tokens after the drop
	a.Resolver.Supersede()
	DropTokens(ctx, a.Cookies, a.Storage)

	err := a.Sink.Record(ctx.Context(), ActivityEvent{
		EventType: ActivityEventSignedOut,
		Outcome:   OutcomeNotSignedIn,
	})
	if err != nil {
		a.Logger.Debug("activity sink rejected sign-out: %v", err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{"status": "signed-out"})
}

// commit lands outcome side effects on the response: fresh tokens get
// persisted, terminal failures drop whatever was stored.
func (a *Controller) commit(ctx router.Context, outcome Outcome) {
	switch {
	case outcome.SignedIn() && !outcome.Tokens.Empty():
		PersistTokens(ctx, a.Cookies, a.Storage, outcome.Tokens, a.Codec, a.Logger)
	case outcome.Kind == OutcomeUserSuspended || outcome.Kind == OutcomeVerificationFailure:
		DropTokens(ctx, a.Cookies, a.Storage)
	}
}

func statusFor(outcome Outcome) int {
	switch outcome.Kind {
	case OutcomeAlreadySignedIn, OutcomeSignedIn, OutcomeAccountCreated:
		return http.StatusOK
	case OutcomeNotSignedIn, OutcomeUnresolved, OutcomeTokenExpired,
		OutcomeVerificationFailure, OutcomeSignedInRefreshOnly:
		return http.StatusUnauthorized
	case OutcomeUserSuspended:
		return http.StatusForbidden
	case OutcomeEmailAlreadyInUse:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
