package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tool_lending_admin/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Repo struct {
	DB *gorm.DB

	now      func() time.Time
	hashCost int
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{DB: db, now: func() time.Time { return time.Now().UTC() }, hashCost: bcrypt.DefaultCost}
}

// Page 通用分页参数
type Page struct {
	Page int
	Size int
}

func (p Page) normalize(max int) (offset, limit int) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Size <= 0 || p.Size > max {
		p.Size = 20
	}
	return (p.Page - 1) * p.Size, p.Size
}

func likePattern(q string) string { return "%" + strings.ToLower(strings.TrimSpace(q)) + "%" }

// Users

func (r *Repo) TouchUserLogin(ctx context.Context, userID, ip, ua string) error {
	now := r.now()
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"last_login_at": now,
			"last_seen_at":  now,
			"login_count":   gorm.Expr("COALESCE(login_count, 0) + 1"),
			"last_login_ip": ip,
			"last_login_ua": ua,
		}).Error
}

func (r *Repo) TouchUserSeen(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen_at", r.now()).Error
}

// 按 ID 查
func (r *Repo) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, wrap("find user", err)
	}
	return &u, nil
}

func (r *Repo) FindUserByCIN(ctx context.Context, cin string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("cin = ?", strings.TrimSpace(cin)).First(&u).Error; err != nil {
		return nil, wrap("find user", err)
	}
	return &u, nil
}

// 列表（分页 + 关键词，关键词匹配姓名/CIN/职务）
type ListUsersResult struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
}

func (r *Repo) ListUsers(ctx context.Context, q string, p Page) (ListUsersResult, error) {
	offset, limit := p.normalize(100)

	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if strings.TrimSpace(q) != "" {
		like := likePattern(q)
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(cin) LIKE ? OR LOWER(role) LIKE ?", like, like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListUsersResult{}, err
	}

	users := []models.User{}
	if err := tx.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error; err != nil {
		return ListUsersResult{}, err
	}
	return ListUsersResult{Users: users, Total: total}, nil
}

type UserInput struct {
	Name     string
	CIN      string
	Role     string
	Password string
	IsAdmin  bool
}

// UserPatch 中 nil 字段保持不变
type UserPatch struct {
	Name     *string
	CIN      *string
	Role     *string
	Password *string
	IsAdmin  *bool
}

func (r *Repo) hashPassword(pw string) (string, error) {
	if pw == "" {
		return "", fmt.Errorf("password is required: %w", ErrInvalidInput)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), r.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("password too long: %w", ErrInvalidInput)
	}
	return string(h), err
}

func (r *Repo) cinTaken(tx *gorm.DB, cin, exceptID string) (bool, error) {
	var n int64
	q := tx.Model(&models.User{}).Where("cin = ?", cin)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *Repo) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	in.Name, in.CIN = strings.TrimSpace(in.Name), strings.TrimSpace(in.CIN)
	if in.Name == "" || in.CIN == "" {
		return nil, fmt.Errorf("name and cin are required: %w", ErrInvalidInput)
	}
	hash, err := r.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		CIN:          in.CIN,
		Role:         strings.TrimSpace(in.Role),
		PasswordHash: hash,
		IsAdmin:      in.IsAdmin,
	}
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := r.cinTaken(tx, u.CIN, "")
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("cin %q: %w", u.CIN, ErrDuplicate)
		}
		return tx.Create(u).Error
	})
	if err != nil {
		return nil, wrap("create user", err)
	}
	return u, nil
}

func (r *Repo) UpdateUser(ctx context.Context, id string, p UserPatch) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&u, "id = ?", id).Error; err != nil {
			return err
		}
		updates := map[string]any{}
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return fmt.Errorf("name is required: %w", ErrInvalidInput)
			}
			updates["name"] = name
		}
		if p.CIN != nil {
			cin := strings.TrimSpace(*p.CIN)
			if cin == "" {
				return fmt.Errorf("cin is required: %w", ErrInvalidInput)
			}
			taken, err := r.cinTaken(tx, cin, id)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("cin %q: %w", cin, ErrDuplicate)
			}
			updates["cin"] = cin
		}
		if p.Role != nil {
			updates["role"] = strings.TrimSpace(*p.Role)
		}
		if p.Password != nil && *p.Password != "" {
			hash, err := r.hashPassword(*p.Password)
			if err != nil {
				return err
			}
			updates["password_hash"] = hash
		}
		if p.IsAdmin != nil {
			updates["is_admin"] = *p.IsAdmin
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&u).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&u, "id = ?", id).Error
	})
	if err != nil {
		return nil, wrap("update user", err)
	}
	return &u, nil
}

func (r *Repo) SetUserPicture(ctx context.Context, id, url string) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("picture", url)
	if res.Error != nil {
		return wrap("set user picture", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set user picture: %w", ErrNotFound)
	}
	return nil
}

// DeleteUser 仍有借用记录时拒绝删除，凭据一并删除
func (r *Repo) DeleteUser(ctx context.Context, id string) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Select("id").First(&u, "id = ?", id).Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Loan{}).Where("user_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrUserHasLoans
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Credential{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{ID: id}).Error
	})
	return wrap("delete user", err)
}

// Authenticate 校验 CIN + 密码；不区分“用户不存在”和“密码错误”
func (r *Repo) Authenticate(ctx context.Context, cin, password string) (*models.User, error) {
	u, err := r.FindUserByCIN(ctx, cin)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (r *Repo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("is_admin = ?", true).
		Count(&n).Error
	return n, err
}

// EnsureAdmin 没有任何管理员时创建一个；已有管理员返回 (nil, nil)
func (r *Repo) EnsureAdmin(ctx context.Context, in UserInput) (*models.User, error) {
	n, err := r.CountAdmins(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, nil
	}
	in.IsAdmin = true
	if strings.TrimSpace(in.Name) == "" {
		in.Name = "Administrateur"
	}
	return r.CreateUser(ctx, in)
}

// Credentials

func (r *Repo) TouchCredentialUsed(ctx context.Context, credID []byte) error {
	return r.DB.WithContext(ctx).Model(&models.Credential{}).
		Where("credential_id = ?", credID).
		Update("last_used_at", r.now()).Error
}

func (r *Repo) CountCredentials(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Credential{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}

func (r *Repo) LoadUserCredentials(ctx context.Context, userID string) ([]models.Credential, error) {
	var cs []models.Credential
	if err := r.DB.WithContext(ctx).Where("user_id=?", userID).Find(&cs).Error; err != nil {
		return nil, err
	}
	return cs, nil
}

func (r *Repo) AddCredential(ctx context.Context, c *models.Credential) error {
	return wrap("add credential", r.DB.WithContext(ctx).Create(c).Error)
}

func (r *Repo) UpdateCredentialCounter(ctx context.Context, credID []byte, newCount uint32, cloneWarn bool) error {
	return r.DB.WithContext(ctx).Model(&models.Credential{}).
		Where("credential_id = ?", credID).
		Updates(map[string]any{"sign_count": newCount, "clone_warning": cloneWarn}).Error
}

func (r *Repo) FindUserByCredentialID(ctx context.Context, credID []byte) (*models.User, *models.Credential, error) {
	var c models.Credential
	if err := r.DB.WithContext(ctx).Where("credential_id=?", credID).First(&c).Error; err != nil {
		return nil, nil, wrap("find credential", err)
	}
	var u models.User
	if err := r.DB.WithContext(ctx).Where("id=?", c.UserID).First(&u).Error; err != nil {
		return nil, nil, wrap("find user", err)
	}
	return &u, &c, nil
}
