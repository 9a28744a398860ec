package user

import "github.com/unimart/unimart-api/internal/pkg/apperror"

var ErrUserNotFound = apperror.NotFound("user not found")
