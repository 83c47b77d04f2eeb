package approvalerrors

import (
	"net/http"

	"go-leave/internal/shared/apperror"
)

var (
	ErrInvalidApproverID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid approver id",
		http.StatusBadRequest,
	)
	ErrInvalidRequestID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave request id",
		http.StatusBadRequest,
	)
	ErrCommentsRequired = apperror.New(
		apperror.CodeInvalidInput,
		"comments are required when rejecting a leave request",
		http.StatusBadRequest,
	)
	ErrEmptyBulkRequest = apperror.New(
		apperror.CodeInvalidInput,
		"request_ids must contain at least one id",
		http.StatusBadRequest,
	)
	ErrLeaveNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave request not found",
		http.StatusNotFound,
	)
	ErrNotSubmitted = apperror.New(
		apperror.CodeInvalidState,
		"only SUBMITTED leave requests can be decided",
		http.StatusBadRequest,
	)
	ErrInsufficientBalance = apperror.New(
		apperror.CodeConflict,
		"approving would exceed the available leave balance",
		http.StatusConflict,
	)
)
