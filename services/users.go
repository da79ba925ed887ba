package services

import (
	"context"
	"errors"
	"strings"

	"quickbite-api/apperr"
	"quickbite-api/authz"
	"quickbite-api/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type UserService struct {
	Deps
}

func NewUserService(d Deps) *UserService {
	d = d.withDefaults()
	if d.BcryptCost == 0 {
		d.BcryptCost = bcrypt.DefaultCost
	}
	return &UserService{Deps: d}
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ProfilePatch struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// UserPatch is the admin edit of another account.
type UserPatch struct {
	ProfilePatch
	Role *string `json:"role"`
}

// FederatedProfile is the identity returned by an external provider.
type FederatedProfile struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	role := models.RoleCustomer
	if in.Role != "" {
		r, ok := models.ParseRole(in.Role)
		if !ok {
			return nil, apperr.Validation("unknown role %q", in.Role)
		}
		role = r
	}
	if role == models.RoleAdmin {
		return nil, apperr.Forbidden("admin accounts cannot be self-registered")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLength)
	}

	email := normalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.BcryptCost)
	if err != nil {
		return nil, apperr.Internal(err, "failed to hash password")
	}

	u := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Phone:        in.Phone,
		Address:      in.Address,
	}
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.New(apperr.KindConflict, "user with email %s already exists", email)
		}
		return nil, apperr.Internal(err, "failed to create user")
	}

	s.Log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	s.record(ctx, &authz.Caller{ID: u.ID, Role: u.Role}, "user.registered", "user", u.ID, map[string]any{"role": u.Role})
	return u, nil
}

// Login checks email and password. Unknown email and wrong password give
// the same error.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).First(&u, "email = ?", normalizeEmail(in.Email)).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal(err, "failed to load user")
	}
	if err != nil || u.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "invalid email or password")
	}
	return &u, nil
}

func (s *UserService) Profile(ctx context.Context, caller *authz.Caller) (*models.User, error) {
	if err := authz.Authorize(caller, nil, ""); err != nil {
		return nil, err
	}
	return s.get(ctx, caller.ID)
}

func (s *UserService) UpdateProfile(ctx context.Context, caller *authz.Caller, p ProfilePatch) (*models.User, error) {
	if err := authz.Authorize(caller, nil, ""); err != nil {
		return nil, err
	}
	return s.update(ctx, caller, caller.ID, p, nil)
}

func (s *UserService) ChangePassword(ctx context.Context, caller *authz.Caller, in ChangePasswordInput) error {
	if err := authz.Authorize(caller, nil, ""); err != nil {
		return err
	}
	u, err := s.get(ctx, caller.ID)
	if err != nil {
		return err
	}
	if u.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.CurrentPassword)) != nil {
		return apperr.Validation("current password is incorrect")
	}
	if len(in.NewPassword) < minPasswordLength {
		return apperr.Validation("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.BcryptCost)
	if err != nil {
		return apperr.Internal(err, "failed to hash password")
	}
	if err := s.DB.WithContext(ctx).Model(u).Update("password_hash", string(hash)).Error; err != nil {
		return apperr.Internal(err, "failed to change password")
	}
	s.record(ctx, caller, "user.password_changed", "user", u.ID, nil)
	return nil
}

func (s *UserService) DeleteAccount(ctx context.Context, caller *authz.Caller) error {
	if err := authz.Authorize(caller, nil, ""); err != nil {
		return err
	}
	return s.delete(ctx, caller, caller.ID)
}

func (s *UserService) ListUsers(ctx context.Context, caller *authz.Caller, role string) ([]models.User, error) {
	if err := authz.Authorize(caller, adminOnly, ""); err != nil {
		return nil, err
	}
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	if role != "" {
		r, ok := models.ParseRole(role)
		if !ok {
			return nil, apperr.Validation("unknown role %q", role)
		}
		q = q.Where("role = ?", r)
	}
	users := []models.User{}
	if err := q.Find(&users).Error; err != nil {
		return nil, apperr.Internal(err, "failed to list users")
	}
	return users, nil
}

func (s *UserService) UpdateUser(ctx context.Context, caller *authz.Caller, id string, p UserPatch) (*models.User, error) {
	if err := authz.Authorize(caller, adminOnly, ""); err != nil {
		return nil, err
	}
	var role *models.Role
	if p.Role != nil {
		r, ok := models.ParseRole(*p.Role)
		if !ok {
			return nil, apperr.Validation("unknown role %q", *p.Role)
		}
		role = &r
	}
	return s.update(ctx, caller, id, p.ProfilePatch, role)
}

func (s *UserService) DeleteUser(ctx context.Context, caller *authz.Caller, id string) error {
	if err := authz.Authorize(caller, adminOnly, ""); err != nil {
		return err
	}
	if id == caller.ID {
		return apperr.Validation("cannot delete your own account")
	}
	return s.delete(ctx, caller, id)
}

// FederatedLogin finds the account for an external identity, links it to an
// existing account with the same email, or creates a new CUSTOMER. Linking
// requires the provider to have verified the email.
func (s *UserService) FederatedLogin(ctx context.Context, p FederatedProfile) (*models.User, error) {
	if p.ID == "" {
		return nil, apperr.Validation("federated profile has no id")
	}
	email := normalizeEmail(p.Email)

	var u models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&u, "google_id = ?", p.ID).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if email == "" {
			return apperr.Validation("federated profile has no email")
		}
		err = tx.First(&u, "email = ?", email).Error
		if err == nil {
			if !p.EmailVerified {
				return apperr.Validation("email %s is not verified by the provider", email)
			}
			u.GoogleID = &p.ID
			return tx.Model(&u).Update("google_id", p.ID).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = email
		}
		u = models.User{
			Name:     name,
			Email:    email,
			GoogleID: &p.ID,
			Role:     models.RoleCustomer,
		}
		return tx.Create(&u).Error
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			return nil, err
		}
		return nil, apperr.Internal(err, "failed to sign in with external provider")
	}

	s.Log.Info("federated login", zap.String("user_id", u.ID))
	return &u, nil
}

func (s *UserService) get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "user %s not found", id)
	}
	return &u, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, exceptID string) error {
	q := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperr.Internal(err, "failed to check email")
	}
	if count > 0 {
		return apperr.New(apperr.KindConflict, "user with email %s already exists", email)
	}
	return nil
}

func (s *UserService) update(ctx context.Context, caller *authz.Caller, id string, p ProfilePatch, role *models.Role) (*models.User, error) {
	u, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		changes["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		email := normalizeEmail(*p.Email)
		if email == "" {
			return nil, apperr.Validation("email cannot be empty")
		}
		if email != u.Email {
			if err := s.ensureEmailFree(ctx, email, id); err != nil {
				return nil, err
			}
			changes["email"] = email
		}
	}
	if p.Phone != nil {
		changes["phone"] = *p.Phone
	}
	if p.Address != nil {
		changes["address"] = *p.Address
	}
	if role != nil {
		changes["role"] = *role
	}

	if len(changes) > 0 {
		if err := s.DB.WithContext(ctx).Model(u).Updates(changes).Error; err != nil {
			return nil, apperr.Internal(err, "failed to update user")
		}
		s.record(ctx, caller, "user.updated", "user", id, changes)
	}
	return s.get(ctx, id)
}

func (s *UserService) delete(ctx context.Context, caller *authz.Caller, id string) error {
	res := s.DB.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return apperr.Internal(res.Error, "failed to delete user")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user %s not found", id)
	}
	s.Log.Info("user deleted", zap.String("user_id", id), zap.String("actor_id", caller.ID))
	s.record(ctx, caller, "user.deleted", "user", id, nil)
	return nil
}
