package mailinglist

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// SessionCookieName is the cookie carrying the rotated session identifier
const SessionCookieName = "mailinglist_session"

func RegisterMailingListRoutes[T any](app router.Router[T], opts ...MailingListControllerOption) {
	controller := NewMailingListController(opts...)

	app.Post(controller.Routes.Subscribe, controller.SubscribePost).
		SetName("subscriptions.post")

	app.Get(controller.Routes.Confirm, controller.ConfirmGet).
		SetName("subscriptions-confirm.get")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.get")

	app.Post(controller.Routes.Publish, controller.PublishPost).
		SetName("newsletter-publish.post")
}

type MailingListControllerRoutes struct {
	Subscribe string
	Confirm   string
	Login     string
	Logout    string
	Publish   string
}

type MailingListController struct {
	Debug    bool
	Logger   Logger
	Repo     RepositoryManager
	Routes   *MailingListControllerRoutes
	Auther   Authenticator
	Sessions *SessionManager
	Issuer   *TokenIssuer
	Mailer   Mailer
	BaseURL  string
}

type MailingListControllerOption func(*MailingListController) *MailingListController

func NewMailingListController(opts ...MailingListControllerOption) *MailingListController {
	c := &MailingListController{
		Logger: defLogger{},
		Routes: &MailingListControllerRoutes{
			Subscribe: "/subscriptions",
			Confirm:   "/subscriptions/confirm",
			Login:     "/login",
			Logout:    "/logout",
			Publish:   "/newsletter",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in mailing list controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in mailing list controller...")
	}

	if c.Sessions == nil {
		panic("Missing SessionManager in mailing list controller...")
	}

	if c.Issuer == nil {
		c.Issuer = NewTokenIssuer()
	}

	if c.Mailer == nil {
		c.Mailer = NewLogMailer()
	}

	return c
}

func WithControllerRepo(repo RepositoryManager) MailingListControllerOption {
	return func(c *MailingListController) *MailingListController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther Authenticator) MailingListControllerOption {
	return func(c *MailingListController) *MailingListController {
		c.Auther = auther
		return c
	}
}

func WithControllerSessions(sessions *SessionManager) MailingListControllerOption {
	return func(c *MailingListController) *MailingListController {
		c.Sessions = sessions
		return c
	}
}

func WithControllerMailer(mailer Mailer) MailingListControllerOption {
	return func(c *MailingListController) *MailingListController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerBaseURL(baseURL string) MailingListControllerOption {
	return func(c *MailingListController) *MailingListController {
		c.BaseURL = baseURL
		return c
	}
}

func (a *MailingListController) SubscribePost(ctx router.Context) error {
	payload := new(SubscriberPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("subscribe parse payload: %s", err)
		return renderClientError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if a.Debug {
		fmt.Println("======= SUBSCRIBE ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("========================")
	}

	var resp *SubscribeResponse
	subscribe := NewSubscribeHandler(a.Repo, a.Issuer, a.Mailer, a.BaseURL).WithLogger(a.Logger)
	err := subscribe.Execute(ctx.Context(), SubscribeMessage{
		Name:  payload.Name,
		Email: payload.Email,
		OnResponse: func(r *SubscribeResponse) {
			resp = r
		},
	})
	if err != nil {
		a.Logger.Error("subscribe execute: %s", err)
		return renderClientError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"message": resp.Message,
	})
}

func (a *MailingListController) ConfirmGet(ctx router.Context) error {
	confirm := NewConfirmSubscriptionHandler(a.Repo, a.Issuer).WithLogger(a.Logger)

	err := confirm.Execute(ctx.Context(), ConfirmSubscriptionMessage{
		TokenCandidate: ctx.Query("subscription_token", ""),
	})
	if err != nil {
		a.Logger.Error("confirm execute: %s", err)
		return renderClientError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"message": "subscription confirmed",
	})
}

// LoginRequest payload
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *MailingListController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: %s", err)
		return renderClientError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return renderClientError(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, "missing credentials"))
	}

	userID, err := a.Auther.Authenticate(ctx.Context(), NewCredentials(payload.Username, payload.Password))
	if err != nil {
		a.Logger.Error("login authenticate: %s", err)
		_, clientErr := MapClientError(err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": clientErr.Message,
		}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
	}

	// The rotated identifier is durable before this cookie is written; a
	// pre-login id can no longer race us.
	sessionID, err := a.Sessions.Establish(ctx.Context(), userID)
	if err != nil {
		a.Logger.Error("login establish session: %s", err)
		return renderClientError(ctx, err)
	}

	a.setSessionCookie(ctx, sessionID)

	return ctx.Redirect("/", fiber.StatusSeeOther)
}

func (a *MailingListController) LogOut(ctx router.Context) error {
	if sessionID := ctx.Cookies(SessionCookieName); sessionID != "" {
		if err := a.Sessions.Destroy(ctx.Context(), sessionID); err != nil {
			a.Logger.Error("logout destroy session: %s", err)
		}
	}

	a.clearSessionCookie(ctx)

	return ctx.Redirect("/", fiber.StatusTemporaryRedirect)
}

// NewsletterPayload is the publish request body
type NewsletterPayload struct {
	Title   string `json:"title"`
	Content struct {
		HTML string `json:"html"`
		Text string `json:"text"`
	} `json:"content"`
}

// Validate will run validation rules
func (r NewsletterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
	)
}

// PublishPost authenticates via Basic auth and dispatches an issue to all
// confirmed subscribers.
func (a *MailingListController) PublishPost(ctx router.Context) error {
	creds, err := DecodeBasicAuth(ctx.Header("Authorization"))
	if err != nil {
		return a.renderAuthChallenge(ctx, err)
	}

	userID, err := a.Auther.Authenticate(ctx.Context(), creds)
	if err != nil {
		return a.renderAuthChallenge(ctx, err)
	}

	payload := new(NewsletterPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("publish parse payload: %s", err)
		return renderClientError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return renderClientError(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, "missing newsletter title"))
	}

	a.Logger.Info("publishing newsletter %q as user %s", payload.Title, userID)

	publish := NewPublishNewsletterHandler(a.Repo, a.Mailer).WithLogger(a.Logger)
	err = publish.Execute(ctx.Context(), PublishNewsletterMessage{
		Title:       payload.Title,
		HTMLContent: payload.Content.HTML,
		TextContent: payload.Content.Text,
	})
	if err != nil {
		a.Logger.Error("publish execute: %s", err)
		return renderClientError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"message": "newsletter published",
	})
}

// Protected guards a route behind a live session. Resolution fails closed;
// the last-seen update is an explicit second step, not a side effect of the
// lookup.
func (a *MailingListController) Protected(next router.HandlerFunc) router.HandlerFunc {
	return func(ctx router.Context) error {
		sessionID := ctx.Cookies(SessionCookieName)

		record, err := a.Sessions.Authorize(ctx.Context(), sessionID)
		if err != nil {
			return renderClientError(ctx, err)
		}

		if err := a.Sessions.Touch(ctx.Context(), record.ID); err != nil {
			return renderClientError(ctx, err)
		}

		ctx.SetContext(WithSessionContext(ctx.Context(), record))

		return next(ctx)
	}
}

func (a *MailingListController) renderAuthChallenge(ctx router.Context, err error) error {
	status, clientErr := MapClientError(err)
	if status == fiber.StatusUnauthorized {
		ctx.SetHeader("WWW-Authenticate", `Basic realm="publish"`)
	}

	return ctx.JSON(status, router.ViewContext{
		"error": clientErr,
	})
}

func renderClientError(ctx router.Context, err error) error {
	status, clientErr := MapClientError(err)
	return ctx.JSON(status, router.ViewContext{
		"error": clientErr,
	})
}

func (a *MailingListController) setSessionCookie(ctx router.Context, sessionID string) {
	ctx.Cookie(&router.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Expires:  time.Now().Add(defaultSessionTTL),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *MailingListController) clearSessionCookie(ctx router.Context) {
	ctx.Cookie(&router.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
