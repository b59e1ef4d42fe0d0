package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/civicdesk/grievance-desk/internal/model"
)

// UserRequest registers a staff member in the user directory so that
// complaints can be assigned to them.
type UserRequest struct {
	ID         string `json:"id" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Name       string `json:"name" validate:"required,max=200"`
	Role       string `json:"role" validate:"required,oneof=department admin"`
	Department string `json:"department" validate:"required_if=Role department,max=100"`
}

var validateUser = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}()

// RegisterUser adds req to the user directory. A duplicate ID or email
// surfaces as model.ErrConflict.
func (m *Machine) RegisterUser(ctx context.Context, actor model.Actor, req UserRequest) (*model.User, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.Department = strings.TrimSpace(req.Department)

	if err := validateUser.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("validate user: %w", err)
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required", "required_if":
				fields[fe.Field()] = "is required"
			case "email":
				fields[fe.Field()] = "must be a valid email address"
			case "oneof":
				fields[fe.Field()] = "must be one of: " + fe.Param()
			default:
				fields[fe.Field()] = "is invalid"
			}
		}
		return nil, &model.ValidationError{Message: "invalid user", Fields: fields}
	}

	u := &model.User{
		ID:         req.ID,
		Email:      strings.ToLower(req.Email),
		Name:       req.Name,
		Role:       model.Role(req.Role),
		Department: req.Department,
		CreatedAt:  m.now().UTC(),
	}
	if err := m.store.CreateUser(ctx, u); err != nil {
		return nil, model.Dependency("create user", err)
	}
	m.logger.Info("user registered", "user", u.ID, "role", u.Role, "actor", actor.ID)
	return u, nil
}
