package domain

// NotificationMessage 是投递到消息队列的通知，由 notifier worker 消费。
// 通知是尽力而为的旁路：入队失败只记日志，绝不影响核心操作的结果。
type NotificationMessage struct {
	Type     string `json:"type"`
	TenantID int64  `json:"tenantID"`
	To       string `json:"to"`
	Data     any    `json:"data"`
}

const (
	NotificationTypeSwapCreated  = "swap_request_created"
	NotificationTypeSwapApproved = "swap_request_approved"
	NotificationTypeSwapRejected = "swap_request_rejected"
)

type SwapCreatedNotificationData struct {
	RecipientName string `json:"recipientName"`
	RequesterName string `json:"requesterName"`
	ShiftWindow   string `json:"shiftWindow"`
	Reason        string `json:"reason"`
	SwapRequestID int64  `json:"swapRequestID"`
}

type SwapResolvedNotificationData struct {
	RecipientName   string `json:"recipientName"`
	ShiftWindow     string `json:"shiftWindow"`
	SwapRequestID   int64  `json:"swapRequestID"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}
