package model

import "time"

// Notification types sent over web push.
const (
	NotifTypeGroceryAdded = "grocery_added"
	NotifTypeMemberJoined = "member_joined"
	NotifTypeExpiringSoon = "expiring_soon"
)

type PushSubscription struct {
	AccountID  string    `json:"account_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
