package repository

import "errors"

var (
	// ErrDonationNotFound возвращается, если пожертвование с указанным идентификатором не существует.
	ErrDonationNotFound = errors.New("donation not found")
	// ErrConditionFailed возвращается, если условное обновление не затронуло ни одной записи:
	// запись отсутствует, находится в другом состоянии или привязана к другому волонтёру.
	ErrConditionFailed = errors.New("conditional update matched no donation")
	// ErrInvalidID возвращается, если идентификатор не соответствует формату хранилища.
	ErrInvalidID = errors.New("invalid donation id")
)
