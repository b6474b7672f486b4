package users

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Preferences are the per user settings of the todo application
type Preferences struct {
	ID             primitive.ObjectID      `json:"id" bson:"_id"`
	UserID         primitive.ObjectID      `json:"-" bson:"userId"`
	Theme          string                  `json:"theme" bson:"theme" validate:"oneof=light dark system"`
	Notifications  NotificationPreferences `json:"notifications" bson:"notifications"`
	TaskDefaults   TaskDefaults            `json:"taskDefaults" bson:"taskDefaults"`
	Privacy        PrivacyPreferences      `json:"privacy" bson:"privacy"`
	WorkHours      *WorkHours              `json:"workHours,omitempty" bson:"workHours,omitempty"`
	CreatedAt      time.Time               `json:"createdAt" bson:"createdAt"`
	LastModifiedAt time.Time               `json:"lastModifiedAt" bson:"lastModifiedAt"`
}

// NotificationPreferences defines which notification channels are enabled
type NotificationPreferences struct {
	Enabled bool `json:"enabled" bson:"enabled"`
	Browser bool `json:"browser" bson:"browser"`
	Desktop bool `json:"desktop" bson:"desktop"`
}

// TaskDefaults are applied to newly created todos
type TaskDefaults struct {
	DefaultPriority    string `json:"defaultPriority" bson:"defaultPriority" validate:"oneof=low medium high"`
	DefaultCategory    string `json:"defaultCategory" bson:"defaultCategory"`
	DefaultView        string `json:"defaultView" bson:"defaultView"`
	AutoCreateSubtasks bool   `json:"autoCreateSubtasks" bson:"autoCreateSubtasks"`
}

// PrivacyPreferences controls analytics and history retention
type PrivacyPreferences struct {
	AllowAnalytics      bool `json:"allowAnalytics" bson:"allowAnalytics"`
	StoreHistory        bool `json:"storeHistory" bson:"storeHistory"`
	AutoDeleteCompleted bool `json:"autoDeleteCompleted" bson:"autoDeleteCompleted"`
	DeleteAfterDays     int  `json:"deleteAfterDays" bson:"deleteAfterDays" validate:"min=0"`
}

// WorkHours is the daily window the user wants tasks to be scheduled in
type WorkHours struct {
	StartHour int `json:"startHour" bson:"startHour" validate:"min=0,max=23"`
	EndHour   int `json:"endHour" bson:"endHour" validate:"min=0,max=23"`
}

// Validate checks that the window is not empty
func (w *WorkHours) Validate() error {
	if w.StartHour >= w.EndHour {
		return fmt.Errorf("work hours start %d must be before end %d", w.StartHour, w.EndHour)
	}

	return nil
}

// NewDefaultPreferences builds the preferences every user starts with
func NewDefaultPreferences(userID primitive.ObjectID) *Preferences {
	return &Preferences{
		UserID: userID,
		Theme:  "system",
		Notifications: NotificationPreferences{
			Enabled: true,
			Browser: true,
			Desktop: true,
		},
		TaskDefaults: TaskDefaults{
			DefaultPriority: "medium",
			DefaultCategory: "general",
			DefaultView:     "list",
		},
		Privacy: PrivacyPreferences{
			AllowAnalytics:  true,
			StoreHistory:    true,
			DeleteAfterDays: 30,
		},
	}
}
