package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnavailable        = errors.New("tool is unavailable")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrAlreadyFixed       = errors.New("maintenance already fixed")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrQuantityOverflow   = errors.New("returned, installed, damaged and lost exceed loan quantity")
	ErrUserHasLoans       = errors.New("user still has loans")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicate          = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
)

// wrap 把 gorm 的错误翻成仓库层的哨兵错误
func wrap(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
