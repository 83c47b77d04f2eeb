package approval

import (
	"go-leave/internal/leave"
)

type DecisionRequest struct {
	Comments string `json:"comments"`
}

type BulkApproveRequest struct {
	RequestIDs []string `json:"request_ids" binding:"required,min=1,dive,uuid"`
	Comments   string   `json:"comments"`
}

type ApprovalResponse struct {
	ID             string `json:"id"`
	LeaveRequestID string `json:"leave_request_id"`
	ApproverID     string `json:"approver_id"`
	Decision       string `json:"decision"`
	Comments       string `json:"comments,omitempty"`
	DecidedAt      string `json:"decided_at"`
}

// DecisionResponse is the single-item approve/reject result: the updated
// request plus its full decision history, most recent first.
type DecisionResponse struct {
	Request leave.LeaveRequestResponse `json:"request"`
	History []ApprovalResponse         `json:"history"`
}

type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type BulkApproveResponse struct {
	Approved []string      `json:"approved"`
	Failed   []BulkFailure `json:"failed"`
}
