package services

import "errors"

// Условия пропуска: конфигурация не обрабатывалась и счетчик ошибок не меняется
var (
	ErrNoDueObligation      = errors.New("no due obligation")
	ErrNothingOwed          = errors.New("nothing owed")
	ErrAlreadySettled       = errors.New("obligation already settled in this run window")
	ErrObligationNotPayable = errors.New("obligation is no longer payable")
	ErrLoanNotActive        = errors.New("loan is not active")
)

// Ошибки обработки отдельной конфигурации
var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnknownAutopayType  = errors.New("unknown autopay type")
	ErrInvalidConfig       = errors.New("invalid autopay config")
	ErrPanic               = errors.New("panic while processing autopay")
)

// ErrRunInProgress возвращается, если в процессе уже выполняется пакетный запуск
var ErrRunInProgress = errors.New("autopay run already in progress")

// IsSkip сообщает, является ли ошибка условием пропуска, а не сбоем
func IsSkip(err error) bool {
	return errors.Is(err, ErrNoDueObligation) ||
		errors.Is(err, ErrNothingOwed) ||
		errors.Is(err, ErrAlreadySettled) ||
		errors.Is(err, ErrObligationNotPayable) ||
		errors.Is(err, ErrLoanNotActive)
}
