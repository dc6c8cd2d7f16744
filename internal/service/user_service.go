package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tpm-hub/internal/auth"
	"tpm-hub/internal/config"
	"tpm-hub/internal/models"
	"tpm-hub/internal/repository"
)

// JoinDateLayout is the yy/mm/dd display format join dates are stored
// in, carried over from the legacy tables.
const JoinDateLayout = "06/01/02"

type UserService struct {
	userRepo    *repository.UserRepository
	sessionRepo *repository.SessionRepository
	auditRepo   *repository.AuditRepository
	authSvc     *auth.Service
	confirm     *ConfirmationBroker
	bootstrap   config.BootstrapConfig
	jwtExpiry   time.Duration
}

func NewUserService(
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	auditRepo *repository.AuditRepository,
	authSvc *auth.Service,
	confirm *ConfirmationBroker,
	bootstrap config.BootstrapConfig,
	jwtExpiry time.Duration,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		auditRepo:   auditRepo,
		authSvc:     authSvc,
		confirm:     confirm,
		bootstrap:   bootstrap,
		jwtExpiry:   jwtExpiry,
	}
}

// RegisterInput is the signup form.
type RegisterInput struct {
	ID              string `json:"id" validate:"required"`
	Password        string `json:"password" validate:"required,min=4"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	Name            string `json:"name" validate:"required"`
	Department      string `json:"department"`
	Title           string `json:"title"`
}

// Register creates a Member account. The role is fixed; reviewers and
// root are provisioned out of band.
func (s *UserService) Register(in RegisterInput) (*models.User, error) {
	if in.ID == "" || in.Password == "" || in.Name == "" {
		return nil, fmt.Errorf("%w: id, password and name are required", ErrValidation)
	}
	if in.Password != in.PasswordConfirm {
		return nil, fmt.Errorf("%w: password confirmation does not match", ErrValidation)
	}

	hash, err := s.authSvc.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:           in.ID,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         models.RoleMember,
		Department:   in.Department,
		Title:        in.Title,
		JoinedOn:     time.Now().Format(JoinDateLayout),
	}
	if err := s.userRepo.Create(u); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, fmt.Errorf("%w: id %s is already taken", ErrValidation, in.ID)
		}
		return nil, err
	}

	slog.Info("User registered", "user_id", u.ID, "department", u.Department)
	return u, nil
}

// Authenticate checks credentials, issues an access token and persists
// the session row keyed by the token's JTI.
func (s *UserService) Authenticate(id, password, ip, userAgent string) (*models.User, string, error) {
	u, err := s.userRepo.Get(id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", fmt.Errorf("%w: invalid credentials", ErrPermission)
		}
		return nil, "", err
	}
	if err := s.authSvc.VerifyPassword(u.PasswordHash, password); err != nil {
		return nil, "", fmt.Errorf("%w: invalid credentials", ErrPermission)
	}

	token, jti, err := s.authSvc.GenerateToken(u.ID, u.Name)
	if err != nil {
		return nil, "", err
	}
	now := time.Now()
	session := &models.Session{
		JTI:       jti,
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.jwtExpiry),
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, "", err
	}

	slog.Info("User logged in", "user_id", u.ID)
	return u, token, nil
}

// Logout invalidates the session behind a token id.
func (s *UserService) Logout(jti string) error {
	return s.sessionRepo.Delete(jti)
}

// ChangePassword rotates a user's credential after verifying the
// current one. All other sessions of the user are revoked.
func (s *UserService) ChangePassword(id, current, newPassword, confirm string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}
	if newPassword != confirm {
		return fmt.Errorf("%w: password confirmation does not match", ErrValidation)
	}

	u, err := s.userRepo.Get(id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
		return err
	}
	if err := s.authSvc.VerifyPassword(u.PasswordHash, current); err != nil {
		return fmt.Errorf("%w: current password is incorrect", ErrPermission)
	}

	hash, err := s.authSvc.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(id, hash); err != nil {
		return err
	}
	if err := s.sessionRepo.DeleteForUser(id); err != nil {
		slog.Warn("Failed to revoke sessions after password change", "user_id", id, "error", err)
	}

	slog.Info("Password changed", "user_id", id)
	return nil
}

// EnsureRootAccount seeds the bootstrap root account on first start.
// It is idempotent; an existing account is left untouched.
func (s *UserService) EnsureRootAccount() error {
	_, err := s.userRepo.Get(s.bootstrap.RootID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}

	password := s.bootstrap.RootPassword
	if password == "" {
		// Development fallback; production requires the env var.
		password = "admin"
		slog.Warn("BOOTSTRAP_ROOT_PASSWORD not set, using default root password")
	}
	hash, err := s.authSvc.HashPassword(password)
	if err != nil {
		return err
	}
	root := &models.User{
		ID:           s.bootstrap.RootID,
		PasswordHash: hash,
		Name:         s.bootstrap.RootName,
		Role:         models.RoleRoot,
		Department:   s.bootstrap.RootDepartment,
		JoinedOn:     time.Now().Format(JoinDateLayout),
	}
	if err := s.userRepo.Create(root); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil
		}
		return err
	}

	slog.Info("Bootstrap root account created", "user_id", root.ID)
	return nil
}

// List returns every account. Root only.
func (s *UserService) List(actor *models.User) ([]models.User, error) {
	if actor.Role != models.RoleRoot {
		return nil, fmt.Errorf("%w: only root can list accounts", ErrPermission)
	}
	return s.userRepo.All()
}

// bulkDeleteSelection is the payload carried between the two steps of
// the bulk delete flow.
type bulkDeleteSelection struct {
	IDs     []string
	Indices []int
}

// BeginBulkDelete marks a set of accounts for deletion and returns the
// confirmation token together with the resolved selection, for the
// confirmation listing. The bootstrap root account is silently dropped
// from the selection even when marked.
func (s *UserService) BeginBulkDelete(actor *models.User, ids []string, indices []int) (string, []models.User, error) {
	if actor.Role != models.RoleRoot {
		return "", nil, fmt.Errorf("%w: only root can delete accounts", ErrPermission)
	}

	users, err := s.userRepo.All()
	if err != nil {
		return "", nil, err
	}
	byID := make(map[string]int, len(users))
	for i, u := range users {
		byID[u.ID] = i
	}

	var keptIDs []string
	for _, id := range ids {
		if id == s.bootstrap.RootID {
			continue
		}
		keptIDs = append(keptIDs, id)
	}
	var keptIndices []int
	for _, i := range indices {
		if i < 0 || i >= len(users) {
			return "", nil, fmt.Errorf("%w: row index %d out of range", ErrValidation, i)
		}
		if users[i].ID == s.bootstrap.RootID {
			continue
		}
		keptIndices = append(keptIndices, i)
	}

	var selected []models.User
	seen := make(map[int]bool)
	for _, id := range keptIDs {
		if i, ok := byID[id]; ok && !seen[i] {
			seen[i] = true
			selected = append(selected, users[i])
		}
	}
	for _, i := range keptIndices {
		if !seen[i] {
			seen[i] = true
			selected = append(selected, users[i])
		}
	}
	if len(selected) == 0 {
		return "", nil, fmt.Errorf("%w: no deletable accounts selected", ErrValidation)
	}

	token, err := s.confirm.Begin(ConfirmBulkDelete, actor.ID, bulkDeleteSelection{IDs: keptIDs, Indices: keptIndices})
	if err != nil {
		return "", nil, err
	}
	return token, selected, nil
}

// ConfirmBulkDelete commits a pending bulk deletion. The acting admin
// re-enters their own password; a mismatch aborts the whole operation
// with no rows removed. Sessions of deleted accounts are revoked.
func (s *UserService) ConfirmBulkDelete(actor *models.User, token, password string) error {
	payload, err := s.confirm.Take(token, ConfirmBulkDelete, actor.ID)
	if err != nil {
		return err
	}
	sel, ok := payload.(bulkDeleteSelection)
	if !ok {
		return fmt.Errorf("%w: unknown confirmation token", ErrNotFound)
	}

	stored, err := s.userRepo.Get(actor.ID)
	if err != nil {
		return err
	}
	if err := s.authSvc.VerifyPassword(stored.PasswordHash, password); err != nil {
		return fmt.Errorf("%w: password re-authentication failed", ErrPermission)
	}

	// Resolve the ids behind index selections before rows move.
	users, err := s.userRepo.All()
	if err != nil {
		return err
	}
	removedIDs := append([]string(nil), sel.IDs...)
	for _, i := range sel.Indices {
		if i >= 0 && i < len(users) {
			removedIDs = append(removedIDs, users[i].ID)
		}
	}

	if err := s.userRepo.Delete(sel.IDs, sel.Indices); err != nil {
		return err
	}
	for _, id := range removedIDs {
		if id == "" {
			continue
		}
		if err := s.sessionRepo.DeleteForUser(id); err != nil {
			slog.Warn("Failed to revoke sessions of deleted account", "user_id", id, "error", err)
		}
	}

	s.audit(actor.ID, "bulk_delete", "users", fmt.Sprintf("%d accounts removed", len(sel.IDs)+len(sel.Indices)))
	slog.Info("Bulk account deletion committed", "actor", actor.ID, "ids", len(sel.IDs), "indices", len(sel.Indices))
	return nil
}

func (s *UserService) audit(actorID, action, resource, details string) {
	err := s.auditRepo.Append(&models.AuditEntry{
		CreatedAt: time.Now(),
		ActorID:   actorID,
		Action:    action,
		Resource:  resource,
		Details:   details,
	})
	if err != nil {
		slog.Warn("Failed to write audit entry", "action", action, "error", err)
	}
}
