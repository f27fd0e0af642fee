package session

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// RegisterRoutes mounts the session routes on app.
func RegisterRoutes[T any](app router.Router[T], opts ...ControllerOption) {

	controller := NewController(opts...)

	app.
		Get(controller.Routes.Login,
			controller.LoginShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")
}

type ControllerRoutes struct {
	Login    string
	Logout   string
	Register string
}

type ControllerViews struct {
	Login    string
	Register string
}

// Controller serves the login, logout, and registration routes for
// server-driven UIs. All identity state flows through the Manager; the
// controller never touches the Store directly.
type Controller struct {
	Debug        bool
	Logger       Logger
	Manager      *Manager
	Guard        *RouteGuard
	Routes       *ControllerRoutes
	Views        *ControllerViews
	ErrorHandler router.ErrorHandler
}

type ControllerOption func(*Controller) *Controller

// WithControllerManager sets the session Manager.
func WithControllerManager(m *Manager) ControllerOption {
	return func(c *Controller) *Controller {
		c.Manager = m
		return c
	}
}

// WithControllerGuard sets the RouteGuard used for post-login redirects.
func WithControllerGuard(g *RouteGuard) ControllerOption {
	return func(c *Controller) *Controller {
		c.Guard = g
		return c
	}
}

// WithControllerLogger sets the logger.
func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &ControllerRoutes{
			Login:    "/login",
			Logout:   "/logout",
			Register: "/register",
		},
		Views: &ControllerViews{
			Login:    "login",
			Register: "register",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Manager == nil {
		panic("Missing Manager in session controller...")
	}

	if c.Guard == nil {
		panic("Missing RouteGuard in session controller...")
	}

	return c
}

func (a *Controller) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

func (a *Controller) LoginPost(ctx router.Context) error {
	payload := new(Credentials)
	errs := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		a.Logger.Debug("login payload: %s", print.MaybePrettyJSON(payload))
	}

	if _, err := a.Manager.Login(ctx.Context(), *payload); err != nil {
		errs["authentication"] = UserMessage(err)
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors":  errs,
			"payload": payload,
		})
	}

	redirect := a.Guard.GetRedirect(ctx, "/")

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *Controller) LogOut(ctx router.Context) error {
	a.Manager.Logout(ctx.Context())
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func (a *Controller) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": Registration{},
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	FullName        string `form:"full_name" json:"full_name"`
	Email           string `form:"email" json:"email"`
	DateOfBirth     string `form:"date_of_birth" json:"date_of_birth"`
	Gender          Gender `form:"gender" json:"gender"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	if err := r.registration().Validate(); err != nil {
		return err
	}

	return validation.ValidateStruct(&r,
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (r RegistrationCreatePayload) registration() Registration {
	return Registration{
		FullName:    r.FullName,
		Email:       r.Email,
		DateOfBirth: r.DateOfBirth,
		Gender:      r.Gender,
		Password:    r.Password,
	}
}

// RegistrationCreate handles the registration form. A successful
// registration does not log the user in; it routes back to the login form.
func (a *Controller) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("register user parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		errs := FormatValidationErrorToMap(err)
		a.Logger.Error("register user validate payload: %v", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": errs,
		})
	}

	if _, err := a.Manager.Register(ctx.Context(), payload.registration()); err != nil {
		a.Logger.Error("register user error: %v", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  UserMessage(err),
			"system_message": "Error creating account",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{UserMessage(err)},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Successful user registration",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field->message map for view rendering.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["validation"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
