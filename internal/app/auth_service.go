package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"childhood-friend/internal/model"
	"childhood-friend/internal/pkg/jwtutil"
	"childhood-friend/internal/platform/logger"
	"childhood-friend/internal/repository"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrWrongPassword = errors.New("wrong password")
	ErrUserExists    = errors.New("user already exists")
)

type AuthService struct {
	userRepo      *repository.UserRepository
	personRepo    *repository.PersonRepository
	jwtSecret     string
	jwtExpiration time.Duration
	log           *logger.Logger
}

type RegisterInput struct {
	ID       string
	Name     string
	Password string
	Birth    string
}

type LoginInput struct {
	ID       string
	Password string
}

type AuthResult struct {
	Token string
	User  *model.User
}

func NewAuthService(
	userRepo *repository.UserRepository,
	personRepo *repository.PersonRepository,
	jwtSecret string,
	jwtExpiration time.Duration,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		personRepo:    personRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		log:           log.With("service", "AuthService"),
	}
}

// Register links the new account to an existing person with the same name
// and birth date, or creates that person first.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	id := strings.TrimSpace(input.ID)
	name := strings.TrimSpace(input.Name)
	birth := strings.TrimSpace(input.Birth)
	if id == "" || name == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}

	existing, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	person, err := s.findOrCreatePerson(ctx, name, birthDate(birth))
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		ID:           id,
		Name:         name,
		PasswordHash: string(hash),
		Birth:        birth,
		PersonID:     &person.PersonID,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", id, "person_id", person.PersonID)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrWrongPassword
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID, user.Name)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) GetBirth(ctx context.Context, userID string) (string, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Birth, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) findOrCreatePerson(ctx context.Context, name, dateOfBirth string) (*model.Person, error) {
	person, err := s.personRepo.FindByNameAndBirth(ctx, name, dateOfBirth)
	if err != nil {
		return nil, err
	}
	if person != nil {
		return person, nil
	}
	person = &model.Person{Name: name, DateOfBirth: dateOfBirth}
	if err := s.personRepo.Create(ctx, person); err != nil {
		return nil, err
	}
	return person, nil
}

// birthDate keeps the date part of inputs like "1990-05-10 13:00" or "1990-05-10T13:00".
func birthDate(birth string) string {
	if i := strings.IndexAny(birth, " T"); i > 0 {
		return birth[:i]
	}
	return birth
}
