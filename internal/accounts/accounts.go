package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"campus_bus/internal/models"
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrProfileConflict    = errors.New("hall ticket or license number already in use")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInactive           = errors.New("account is disabled")
	ErrInvalidInput       = errors.New("invalid account data")
	ErrNotFound           = errors.New("account not found")
)

var validate = validator.New()

// NewAccount is everything needed to create an account and, for students
// and drivers, the matching profile.
type NewAccount struct {
	Username    string `json:"username" validate:"required,max=150"`
	Name        string `json:"name" validate:"max=150"`
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password" validate:"required,min=4"`
	Role        string `json:"role"`
	IsSuperuser bool   `json:"is_superuser"`

	Phone         string `json:"phone" validate:"max=15"`
	HallTicket    string `json:"hall_ticket" validate:"max=20"`
	LicenseNumber string `json:"license_number" validate:"max=25"`
	RouteID       *uint  `json:"route_id"`
	IsVerified    bool   `json:"is_verified"`
}

// Create stores the account, its role and its profile in one transaction.
// A missing role defaults to student. Students without a hall ticket get
// their username as hall ticket.
func Create(ctx context.Context, db *gorm.DB, in NewAccount) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	role, ok := models.ParseRole(in.Role)
	if !ok {
		return nil, ErrInvalidRole
	}
	if role == models.RoleDriver && strings.TrimSpace(in.LicenseNumber) == "" {
		return nil, fmt.Errorf("%w: license_number is required for driver role", ErrInvalidInput)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:    in.Username,
		Name:        in.Name,
		Email:       in.Email,
		Password:    hash,
		Role:        role,
		IsSuperuser: in.IsSuperuser,
		IsActive:    true,
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameTaken
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUsernameTaken
			}
			return err
		}
		return createProfile(tx, &user, in)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	}).Info("Account created.")
	return &user, nil
}

func createProfile(tx *gorm.DB, user *models.User, in NewAccount) error {
	switch user.Role {
	case models.RoleStudent:
		hallTicket := strings.TrimSpace(in.HallTicket)
		if hallTicket == "" {
			hallTicket = user.Username
		}
		student := models.Student{
			UserID:        user.ID,
			HallTicket:    hallTicket,
			Phone:         in.Phone,
			ActiveRouteID: in.RouteID,
			IsVerified:    in.IsVerified,
		}
		if err := tx.Create(&student).Error; err != nil {
			return profileError(err)
		}
		user.Student = &student
	case models.RoleDriver:
		driver := models.Driver{
			UserID:          user.ID,
			LicenseNumber:   strings.TrimSpace(in.LicenseNumber),
			Phone:           in.Phone,
			AssignedRouteID: in.RouteID,
			IsActive:        true,
			IsVerified:      in.IsVerified,
		}
		if err := tx.Create(&driver).Error; err != nil {
			return profileError(err)
		}
		user.Driver = &driver
	}
	return nil
}

func profileError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrProfileConflict
	}
	return fmt.Errorf("create profile: %w", err)
}

// Authenticate checks a username/password pair.
func Authenticate(ctx context.Context, db *gorm.DB, username, password string) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactive
	}
	return &user, nil
}

// SetPassword replaces the stored hash for an account.
func SetPassword(ctx context.Context, db *gorm.DB, userID uint, password string) error {
	if len(password) < 4 {
		return fmt.Errorf("%w: password too short", ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	res := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("password", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hash), nil
}
