package session

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// RegisterUserMessage carries a registration request through non-HTTP entry
// points (CLIs, jobs). OnResponse, when set, receives the created record.
type RegisterUserMessage struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      Gender `json:"gender"`
	Password    string `json:"password"`

	OnResponse func(*User)
}

func (e RegisterUserMessage) Type() string { return "session.register" }

type RegisterUserHandler struct {
	manager *Manager
}

func NewRegisterUserHandler(manager *Manager) *RegisterUserHandler {
	return &RegisterUserHandler{manager: manager}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.manager.Register(ctx, Registration{
		FullName:    event.FullName,
		Email:       event.Email,
		DateOfBirth: event.DateOfBirth,
		Gender:      event.Gender,
		Password:    event.Password,
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
