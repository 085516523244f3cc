package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"webrecorder/api/internal/apperr"
	"webrecorder/api/internal/config"
	"webrecorder/api/internal/ids"
	mailer "webrecorder/api/internal/mail"
	"webrecorder/api/internal/models"
	"webrecorder/api/internal/repository"
	"webrecorder/api/internal/security"
)

const (
	msgInvalidUsername = "The name %s is not a valid username. Please choose a different username"
	msgUsernameTaken   = "User %s already exists! Please choose a different username"
	msgEmailTaken      = "There is already an account for %s. If you have trouble logging in, you may reset the password."
	msgInvalidEmail    = "%s is not a valid e-mail address"
	msgConfirmSent     = "A confirmation e-mail has been sent to %s. Please check your e-mail to complete the registration!"

	confirmSubject = "Please confirm your webrecorder registration"
)

type RegisterInput struct {
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
}

type RegisterResult struct {
	Code      string
	EmailBody string
	Message   string
}

type ConfirmResult struct {
	Username      string
	FirstCollName string
	Auth          AuthResult
}

// RegistrationService takes a visitor from a registration request to a
// confirmed permanent account. Nothing is created until the e-mailed code
// comes back.
type RegistrationService struct {
	accounts *repository.AccountRepository
	pending  *repository.RegistrationRepository
	sessions *SessionService
	vault    *security.PasswordVault
	sender   mailer.Sender
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewRegistrationService(
	accounts *repository.AccountRepository,
	pending *repository.RegistrationRepository,
	sessions *SessionService,
	vault *security.PasswordVault,
	sender mailer.Sender,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *RegistrationService {
	return &RegistrationService{
		accounts: accounts,
		pending:  pending,
		sessions: sessions,
		vault:    vault,
		sender:   sender,
		cfg:      cfg,
		log:      log,
	}
}

func (s *RegistrationService) Begin(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)

	if err := s.vault.CheckMatch(input.Password, input.ConfirmPassword); err != nil {
		return RegisterResult{}, err
	}
	if err := s.vault.CheckPolicy(input.Password); err != nil {
		return RegisterResult{}, err
	}
	if !security.ValidUsername(username) {
		return RegisterResult{}, apperr.Validation(msgInvalidUsername, username)
	}

	available, err := s.accounts.IsUsernameAvailable(ctx, username)
	if err != nil {
		return RegisterResult{}, err
	}
	if !available {
		return RegisterResult{}, apperr.Validation(msgUsernameTaken, username)
	}

	// a bare address only; display names and angle brackets are refused
	addr, err := mail.ParseAddress(email)
	if err != nil || email == "" || addr.Address != email {
		return RegisterResult{}, apperr.Validation(msgInvalidEmail, email)
	}
	email = strings.ToLower(addr.Address)

	inUse, err := s.accounts.EmailInUse(ctx, email)
	if err != nil {
		return RegisterResult{}, err
	}
	if inUse {
		return RegisterResult{}, apperr.Validation(msgEmailTaken, email)
	}

	hash, err := s.vault.Hash(input.Password)
	if err != nil {
		return RegisterResult{}, err
	}

	code, err := s.createPending(ctx, username, email, hash)
	if err != nil {
		return RegisterResult{}, err
	}

	body := s.confirmationBody(username, code)
	if err := s.sender.SendConfirmationEmail(ctx, mailer.Confirmation{
		To:       email,
		Username: username,
		Code:     code,
		Subject:  confirmSubject,
		Body:     body,
	}); err != nil {
		// a code nobody received must not stay redeemable
		if _, cerr := s.pending.Consume(ctx, code); cerr != nil && !errors.Is(cerr, repository.ErrRegistrationNotFound) {
			s.log.Warn().Err(cerr).Str("username", username).Msg("discard pending registration failed")
		}
		return RegisterResult{}, fmt.Errorf("send confirmation: %w", err)
	}

	s.log.Info().Str("username", username).Msg("registration pending confirmation")
	return RegisterResult{
		Code:      code,
		EmailBody: body,
		Message:   fmt.Sprintf(msgConfirmSent, username),
	}, nil
}

// Confirm redeems code. cookieCode is the value the client got back from
// Begin; both must agree before the code is consumed.
func (s *RegistrationService) Confirm(ctx context.Context, code string, cookieCode string, current *models.Session) (ConfirmResult, error) {
	if code == "" || cookieCode == "" || code != cookieCode {
		return ConfirmResult{}, apperr.InvalidCookie()
	}

	pending, err := s.pending.Consume(ctx, code)
	if errors.Is(err, repository.ErrRegistrationNotFound) {
		return ConfirmResult{}, apperr.AlreadyRegistered()
	}
	if err != nil {
		return ConfirmResult{}, err
	}

	account, coll, err := s.accounts.PromoteAccount(ctx, repository.NewAccount{
		Username:     pending.Username,
		Email:        pending.Email,
		PasswordHash: pending.PasswordHash,
		Role:         models.UserRoleArchivist,
		MaxSize:      s.cfg.Accounts.DefaultMaxSize,
	})
	switch {
	case errors.Is(err, repository.ErrUsernameTaken):
		return ConfirmResult{}, apperr.Validation(msgUsernameTaken, pending.Username)
	case errors.Is(err, repository.ErrEmailTaken):
		return ConfirmResult{}, apperr.Validation(msgEmailTaken, pending.Email)
	case err != nil:
		return ConfirmResult{}, err
	}

	auth, err := s.sessions.StartSession(ctx, account, false, current)
	if err != nil {
		return ConfirmResult{}, err
	}

	s.log.Info().Str("username", account.Username).Msg("registration confirmed")
	return ConfirmResult{
		Username:      account.Username,
		FirstCollName: coll.ID,
		Auth:          auth,
	}, nil
}

func (s *RegistrationService) createPending(ctx context.Context, username, email, hash string) (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		code, err := ids.ValidationCode()
		if err != nil {
			return "", err
		}
		err = s.pending.Create(ctx, models.PendingRegistration{
			Code:         code,
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			CreatedAt:    time.Now().UTC(),
		}, s.cfg.Accounts.PendingTTL)
		if errors.Is(err, repository.ErrRegistrationExists) {
			continue
		}
		if err != nil {
			return "", err
		}
		return code, nil
	}
	return "", fmt.Errorf("create pending registration: code collisions")
}

func (s *RegistrationService) confirmationBody(username, code string) string {
	link := strings.TrimRight(s.cfg.Mail.BaseURL, "/") + "/_valreg/" + code
	return fmt.Sprintf("Hello %s,\n\nPlease confirm your registration by visiting:\n\n%s\n\nThe link expires in %s.\n",
		username, link, s.cfg.Accounts.PendingTTL)
}
