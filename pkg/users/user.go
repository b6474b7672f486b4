package users

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the model for a registered user
type User struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	Firstname      string             `json:"firstname" bson:"firstname" validate:"required"`
	Lastname       string             `json:"lastname" bson:"lastname" validate:"required"`
	Password       string             `json:"-" bson:"password" validate:"required"`
	Email          string             `json:"email" bson:"email" validate:"required,email"`
	ProfilePicture string             `json:"profilePicture" bson:"profilePicture"`
	IsAdmin        bool               `json:"isAdmin" bson:"isAdmin"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	LastModifiedAt time.Time          `json:"lastModifiedAt" bson:"lastModifiedAt"`
	Settings       Settings           `json:"settings" bson:"settings"`
	DeviceTokens   []DeviceToken      `json:"-" bson:"deviceTokens"`
}

// Settings holds user specific settings
type Settings struct {
	TimeZone string `json:"timeZone" bson:"timeZone"`
}

// DeviceToken is a push notification token of one of the devices of a user
type DeviceToken struct {
	Token          string    `json:"token" bson:"token"`
	LastRegistered time.Time `json:"lastRegistered" bson:"lastRegistered"`
}

// UserLogin is the body of a login request
type UserLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Location resolves the time zone of the user, the server's local zone is used when none is set
func (u *User) Location() *time.Location {
	if u == nil || u.Settings.TimeZone == "" {
		return time.Local
	}

	location, err := time.LoadLocation(u.Settings.TimeZone)
	if err != nil {
		return time.Local
	}

	return location
}

// DeviceTokenStrings returns all registered push tokens
func (u *User) DeviceTokenStrings() []string {
	var tokens []string
	for _, token := range u.DeviceTokens {
		tokens = append(tokens, token.Token)
	}

	return tokens
}
