package notification

import "time"

// Notification is an outbound message for one recipient. It is handed to a
// Publisher after the originating transaction commits and is never stored
// by this service.
type Notification struct {
	ID                string           `json:"id"`
	Type              NotificationType `json:"type"`
	RecipientID       int64            `json:"recipient_id"`
	ActorID           int64            `json:"actor_id"`
	Message           string           `json:"message"`
	RelatedEntityType string           `json:"related_entity_type"` // "GROUP" or "RATING"
	RelatedEntityID   int64            `json:"related_entity_id"`
	CreatedAt         time.Time        `json:"created_at"`
}

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeMemberJoined  NotificationType = "MEMBER_JOINED"
	NotificationTypeMemberLeft    NotificationType = "MEMBER_LEFT"
	NotificationTypeGroupClosed   NotificationType = "GROUP_CLOSED"
	NotificationTypeGroupCanceled NotificationType = "GROUP_CANCELLED"
	NotificationTypeGroupFinished NotificationType = "GROUP_FINALIZED"
	NotificationTypeRatingPosted  NotificationType = "RATING_POSTED"
)

// RoutingKey is the topic-style key used by brokers, e.g. "group.member_joined".
func (n Notification) RoutingKey() string {
	return routingKeys[n.Type]
}

var routingKeys = map[NotificationType]string{
	NotificationTypeMemberJoined:  "group.member_joined",
	NotificationTypeMemberLeft:    "group.member_left",
	NotificationTypeGroupClosed:   "group.closed",
	NotificationTypeGroupCanceled: "group.cancelled",
	NotificationTypeGroupFinished: "group.finalized",
	NotificationTypeRatingPosted:  "rating.posted",
}
