package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"webrecorder/api/internal/apperr"
	"webrecorder/api/internal/models"
	"webrecorder/api/internal/repository"
	"webrecorder/api/internal/security"
)

const (
	msgIncorrectPassword = "Incorrect password"
	msgDeleteFailed      = "Could not delete user: %s"
	msgNoSuchUser        = "No such user: %s"
	msgNoSuchTempUser    = "No such temp user: %s"

	defaultPerPage = 100
)

// UserInfo is an account as shown to its owner or an admin. Collections is
// nil unless requested.
type UserInfo struct {
	Account     models.Account
	Space       models.SpaceUtilization
	Collections []models.Collection
}

// AccountService is the single entry point the HTTP layer talks to. It
// performs authorization and delegates to the flow-specific services.
type AccountService struct {
	accounts     *repository.AccountRepository
	sessions     *SessionService
	registration *RegistrationService
	quota        *QuotaLedger
	vault        *security.PasswordVault
	log          zerolog.Logger
}

func NewAccountService(
	accounts *repository.AccountRepository,
	sessions *SessionService,
	registration *RegistrationService,
	quota *QuotaLedger,
	vault *security.PasswordVault,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		accounts:     accounts,
		sessions:     sessions,
		registration: registration,
		quota:        quota,
		vault:        vault,
		log:          log,
	}
}

func (s *AccountService) RegisterRequest(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	return s.registration.Begin(ctx, input)
}

func (s *AccountService) ConfirmRegistration(ctx context.Context, code, cookieCode string, current *models.Session) (ConfirmResult, error) {
	return s.registration.Confirm(ctx, code, cookieCode, current)
}

func (s *AccountService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	return s.sessions.Login(ctx, input)
}

func (s *AccountService) Logout(ctx context.Context, current *models.Session) error {
	return s.sessions.Logout(ctx, current)
}

func (s *AccountService) LoadAuth(ctx context.Context, current *models.Session) (AuthResult, error) {
	return s.sessions.Current(ctx, current)
}

func (s *AccountService) CheckUsernameAvailable(ctx context.Context, username string) (bool, error) {
	if !security.ValidUsername(username) {
		return false, nil
	}
	return s.accounts.IsUsernameAvailable(ctx, username)
}

func (s *AccountService) UpdatePassword(ctx context.Context, current *models.Session, currPass, newPass, newPass2 string) error {
	if err := security.RequireRole(current, models.UserRoleArchivist); err != nil {
		return err
	}

	account, err := s.accounts.Get(ctx, current.Username)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return apperr.Unauthorized("Login required")
	}
	if err != nil {
		return err
	}

	ok, err := s.vault.Verify(currPass, account.PasswordHash)
	if err != nil || !ok {
		return apperr.Forbidden(msgIncorrectPassword)
	}
	if newPass != newPass2 {
		return apperr.Forbidden(security.MsgPasswordMismatch)
	}
	if err := s.vault.CheckPolicy(newPass); err != nil {
		return apperr.Forbidden(security.MsgWeakPassword)
	}

	hash, err := s.vault.Hash(newPass)
	if err != nil {
		return err
	}
	if _, err := s.accounts.Update(ctx, account.Username, func(a *models.Account) error {
		a.PasswordHash = hash
		return nil
	}); err != nil {
		return err
	}

	s.log.Info().Str("username", account.Username).Msg("password updated")
	return nil
}

func (s *AccountService) GetUserInfo(ctx context.Context, current *models.Session, username string, includeColls bool) (UserInfo, error) {
	account, err := s.accounts.Get(ctx, username)
	if errors.Is(err, repository.ErrAccountNotFound) || (err == nil && account.IsTemp()) {
		return UserInfo{}, apperr.NotFound(msgNoSuchUser, username)
	}
	if err != nil {
		return UserInfo{}, err
	}
	if err := security.RequireOwnerOrAdmin(current, username); err != nil {
		return UserInfo{}, err
	}
	return s.userInfo(ctx, account, includeColls)
}

// GetTempUserInfo describes a live temp account. Anyone holding the name may
// read it; permanent accounts are never returned here.
func (s *AccountService) GetTempUserInfo(ctx context.Context, username string) (UserInfo, error) {
	account, err := s.accounts.Get(ctx, username)
	if errors.Is(err, repository.ErrAccountNotFound) || (err == nil && !account.IsTemp()) {
		return UserInfo{}, apperr.NotFound(msgNoSuchTempUser, username)
	}
	if err != nil {
		return UserInfo{}, err
	}
	return s.userInfo(ctx, account, false)
}

func (s *AccountService) UpdateDescription(ctx context.Context, current *models.Session, username, desc string) error {
	if _, err := s.accounts.Get(ctx, username); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return apperr.NotFound(msgNoSuchUser, username)
		}
		return err
	}
	if err := security.RequireOwnerOrAdmin(current, username); err != nil {
		return err
	}

	_, err := s.accounts.Update(ctx, username, func(a *models.Account) error {
		a.Desc = desc
		return nil
	})
	if errors.Is(err, repository.ErrAccountNotFound) {
		return apperr.NotFound(msgNoSuchUser, username)
	}
	return err
}

// DeleteUser removes the account and every session bound to it.
func (s *AccountService) DeleteUser(ctx context.Context, current *models.Session, username string) (string, error) {
	account, err := s.accounts.Get(ctx, username)
	if errors.Is(err, repository.ErrAccountNotFound) || (err == nil && account.IsTemp()) {
		return "", apperr.NotFound(msgDeleteFailed, username)
	}
	if err != nil {
		return "", err
	}
	if err := security.RequireOwnerOrAdmin(current, username); err != nil {
		return "", err
	}

	deleted, err := s.accounts.Delete(ctx, username)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return "", apperr.NotFound(msgDeleteFailed, username)
	}
	if err != nil {
		return "", err
	}

	s.log.Info().
		Str("username", deleted.Username).
		Str("deleted_by", current.Username).
		Int("collections", deleted.Collections).
		Int("sessions", deleted.Sessions).
		Msg("user deleted")
	return deleted.Username, nil
}

// ListUsers pages through permanent accounts. page is 1-based.
func (s *AccountService) ListUsers(ctx context.Context, current *models.Session, page, perPage int) ([]UserInfo, error) {
	if err := security.RequireRole(current, models.UserRoleAdmin); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	accounts, err := s.accounts.ListPermanent(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}

	users := make([]UserInfo, 0, len(accounts))
	for _, account := range accounts {
		users = append(users, UserInfo{
			Account: account,
			Space:   s.quota.Utilization(account),
		})
	}
	return users, nil
}

func (s *AccountService) userInfo(ctx context.Context, account models.Account, includeColls bool) (UserInfo, error) {
	info := UserInfo{
		Account: account,
		Space:   s.quota.Utilization(account),
	}
	if includeColls {
		colls, err := s.accounts.ListCollections(ctx, account.Username)
		if err != nil {
			return UserInfo{}, err
		}
		info.Collections = colls
	}
	return info, nil
}
