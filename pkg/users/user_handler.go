package users

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/taskistation/todo-backend/pkg/auth"
	"github.com/taskistation/todo-backend/pkg/auth/jwt"
	"github.com/taskistation/todo-backend/pkg/communication"
	"github.com/taskistation/todo-backend/pkg/email"
	"github.com/taskistation/todo-backend/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// MaxDeviceTokens is the maximum number of push devices per user
const MaxDeviceTokens = 10

// Handler is the handler for user API calls
type Handler struct {
	UserRepository        UserRepositoryInterface
	PreferencesRepository PreferencesRepositoryInterface
	Logger                logger.Interface
	ResponseManager       *communication.ResponseManager
	Secret                string
	EmailService          email.Mailer
}

type registration struct {
	Firstname string `json:"firstname" validate:"required"`
	Lastname  string `json:"lastname" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
}

type profileUpdate struct {
	Firstname      string `json:"firstname"`
	Lastname       string `json:"lastname"`
	Email          string `json:"email" validate:"omitempty,email"`
	ProfilePicture string `json:"profilePicture"`
	Password       string `json:"password" validate:"omitempty,min=6"`
}

// UserRegister is the route for registering a user
func (handler *Handler) UserRegister(writer http.ResponseWriter, request *http.Request) {
	body := registration{}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong format", err)
		return
	}

	v := validator.New()
	err = v.Struct(body)
	if err != nil {
		handler.respondWithValidationError(writer, err)
		return
	}

	presentUser, err := handler.UserRepository.FindByEmail(request.Context(), body.Email)
	if presentUser != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusConflict,
			"User with email "+presentUser.Email+" already exists", nil)
		return
	}

	if err != nil && !errors.Is(err, communication.ErrNotFound) {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem looking up user", err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem hashing password", err)
		return
	}

	user := User{
		Firstname: body.Firstname,
		Lastname:  body.Lastname,
		Email:     body.Email,
		Password:  string(hashedPassword),
	}

	err = handler.UserRepository.Add(request.Context(), &user)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"User couldn't be persisted in the database", err)
		return
	}

	err = handler.PreferencesRepository.Upsert(request.Context(), NewDefaultPreferences(user.ID))
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not create default preferences", err)
		return
	}

	if handler.EmailService != nil {
		err = handler.EmailService.SendEmail(request.Context(), &email.Email{
			ReceiverName:    fmt.Sprintf("%s %s", user.Firstname, user.Lastname),
			ReceiverAddress: user.Email,
			Template:        email.WelcomeTemplateID,
			Parameters: map[string]interface{}{
				"firstname": user.Firstname,
			},
		})
		if err != nil {
			handler.Logger.Error("Could not send welcome mail", err)
		}
	}

	handler.generateAndRespondWithTokens(&user, writer, http.StatusCreated)
}

// UserLogin is the route for user authentication
func (handler *Handler) UserLogin(writer http.ResponseWriter, request *http.Request) {
	userLogin := UserLogin{}
	err := json.NewDecoder(request.Body).Decode(&userLogin)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong format", err)
		return
	}

	v := validator.New()
	err = v.Struct(userLogin)
	if err != nil {
		handler.respondWithValidationError(writer, err)
		return
	}

	user, err := handler.UserRepository.FindByEmail(request.Context(), userLogin.Email)
	if err != nil || user == nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong credentials", nil)
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(userLogin.Password))
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong credentials", nil)
		return
	}

	handler.generateAndRespondWithTokens(user, writer, http.StatusOK)
}

// UserRefresh refreshes a users access token with a new one by providing a refresh token
func (handler *Handler) UserRefresh(writer http.ResponseWriter, request *http.Request) {
	body := struct {
		RefreshToken string `json:"refreshToken"`
	}{}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong format", err)
		return
	}

	if body.RefreshToken == "" {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"No refresh token specified", nil)
		return
	}

	claims, err := jwt.Verify(body.RefreshToken, jwt.TokenTypeRefresh, handler.Secret)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Token invalid", err)
		return
	}

	u, err := handler.UserRepository.FindByID(request.Context(), claims.Subject)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "User not found", err)
		return
	}

	accessToken, err := jwt.Sign(u.ID.Hex(), jwt.TokenTypeAccess, jwt.AccessTokenTTL, handler.Secret)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem signing access token", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{
		"accessToken": accessToken,
	})
}

// UserGet retrieves the profile of the authenticated user
func (handler *Handler) UserGet(writer http.ResponseWriter, request *http.Request) {
	u, err := handler.UserRepository.FindByID(request.Context(), auth.UserID(request))
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			"User wasn't found", err)
		return
	}

	handler.ResponseManager.Respond(writer, u)
}

// UserUpdate updates the profile of the authenticated user, empty fields are left untouched
func (handler *Handler) UserUpdate(writer http.ResponseWriter, request *http.Request) {
	u, err := handler.UserRepository.FindByID(request.Context(), auth.UserID(request))
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			"User wasn't found", err)
		return
	}

	body := profileUpdate{}
	err = json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	v := validator.New()
	err = v.Struct(body)
	if err != nil {
		handler.respondWithValidationError(writer, err)
		return
	}

	if body.Firstname != "" {
		u.Firstname = body.Firstname
	}
	if body.Lastname != "" {
		u.Lastname = body.Lastname
	}
	if body.ProfilePicture != "" {
		u.ProfilePicture = body.ProfilePicture
	}

	if body.Email != "" && body.Email != u.Email {
		presentUser, _ := handler.UserRepository.FindByEmail(request.Context(), body.Email)
		if presentUser != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusConflict,
				"User with email "+body.Email+" already exists", nil)
			return
		}
		u.Email = body.Email
	}

	if body.Password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
				"Problem hashing password", err)
			return
		}
		u.Password = string(hashedPassword)
	}

	err = handler.UserRepository.Update(request.Context(), u)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not update user", err)
		return
	}

	handler.ResponseManager.Respond(writer, u)
}

// UserSettingsPatch updates the settings of a user
func (handler *Handler) UserSettingsPatch(writer http.ResponseWriter, request *http.Request) {
	userID := auth.UserID(request)

	user, err := handler.UserRepository.FindByID(request.Context(), userID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, fmt.Sprintf("Could not find user %s", userID), err)
		return
	}

	settings := user.Settings

	err = json.NewDecoder(request.Body).Decode(&settings)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	if settings.TimeZone != user.Settings.TimeZone {
		_, err := time.LoadLocation(settings.TimeZone)
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, fmt.Sprintf("Timezone %s does not exist", settings.TimeZone), err)
			return
		}
	}

	user.Settings = settings
	err = handler.UserRepository.Update(request.Context(), user)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, fmt.Sprintf("Couldn't update user settings for %s", userID), err)
		return
	}

	handler.ResponseManager.Respond(writer, user)
}

// UserAddDevice upserts a DeviceToken
func (handler *Handler) UserAddDevice(writer http.ResponseWriter, request *http.Request) {
	body := map[string]string{}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong format", err)
		return
	}

	deviceToken := body["deviceToken"]

	if deviceToken == "" {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Must provide deviceToken", nil)
		return
	}

	u, err := handler.UserRepository.FindByID(request.Context(), auth.UserID(request))
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			"User wasn't found", err)
		return
	}

	found := false
	for i, token := range u.DeviceTokens {
		if token.Token == deviceToken {
			u.DeviceTokens[i].LastRegistered = time.Now()
			found = true
			break
		}
	}

	if !found {
		if len(u.DeviceTokens) >= MaxDeviceTokens {
			handler.ResponseManager.RespondWithError(writer, http.StatusTooManyRequests,
				"Too many registered devices", nil)
			return
		}

		u.DeviceTokens = append(u.DeviceTokens, DeviceToken{Token: deviceToken, LastRegistered: time.Now()})
	}

	err = handler.UserRepository.Update(request.Context(), u)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not update user", err)
		return
	}

	handler.ResponseManager.RespondWithNoContent(writer)
}

// UserRemoveDevice deletes a DeviceToken
func (handler *Handler) UserRemoveDevice(writer http.ResponseWriter, request *http.Request) {
	deviceToken := mux.Vars(request)["deviceToken"]

	u, err := handler.UserRepository.FindByID(request.Context(), auth.UserID(request))
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			"User wasn't found", err)
		return
	}

	found := false
	for index, token := range u.DeviceTokens {
		if token.Token == deviceToken {
			u.DeviceTokens = append(u.DeviceTokens[:index], u.DeviceTokens[index+1:]...)
			found = true
			break
		}
	}

	if !found {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Device token not registered", nil)
		return
	}

	err = handler.UserRepository.Update(request.Context(), u)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not update user", err)
		return
	}

	handler.ResponseManager.RespondWithNoContent(writer)
}

// PreferencesGet returns the preferences of the user and creates the defaults when there are none yet
func (handler *Handler) PreferencesGet(writer http.ResponseWriter, request *http.Request) {
	userID := auth.UserID(request)

	preferences, err := handler.findOrCreatePreferences(request, userID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not load preferences", err)
		return
	}

	handler.ResponseManager.Respond(writer, preferences)
}

// PreferencesUpdate merges the request body into the stored preferences
func (handler *Handler) PreferencesUpdate(writer http.ResponseWriter, request *http.Request) {
	userID := auth.UserID(request)

	preferences, err := handler.findOrCreatePreferences(request, userID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not load preferences", err)
		return
	}

	updated := *preferences
	if preferences.WorkHours != nil {
		workHours := *preferences.WorkHours
		updated.WorkHours = &workHours
	}

	err = json.NewDecoder(request.Body).Decode(&updated)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	updated.ID = preferences.ID
	updated.UserID = preferences.UserID
	preferences = &updated

	v := validator.New()
	err = v.Struct(preferences)
	if err != nil {
		handler.respondWithValidationError(writer, err)
		return
	}

	if preferences.WorkHours != nil {
		err = preferences.WorkHours.Validate()
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Invalid work hours", err)
			return
		}
	}

	err = handler.PreferencesRepository.Upsert(request.Context(), preferences)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not persist preferences", err)
		return
	}

	handler.ResponseManager.Respond(writer, preferences)
}

func (handler *Handler) findOrCreatePreferences(request *http.Request, userID string) (*Preferences, error) {
	preferences, err := handler.PreferencesRepository.FindByUserID(request.Context(), userID)
	if err == nil {
		return preferences, nil
	}

	if !errors.Is(err, communication.ErrNotFound) {
		return nil, err
	}

	u, err := handler.UserRepository.FindByID(request.Context(), userID)
	if err != nil {
		return nil, err
	}

	preferences = NewDefaultPreferences(u.ID)
	err = handler.PreferencesRepository.Upsert(request.Context(), preferences)
	if err != nil {
		return nil, err
	}

	return preferences, nil
}

func (handler *Handler) generateAndRespondWithTokens(user *User, writer http.ResponseWriter, status int) {
	accessToken, err := jwt.Sign(user.ID.Hex(), jwt.TokenTypeAccess, jwt.AccessTokenTTL, handler.Secret)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem signing access token", err)
		return
	}

	refreshToken, err := jwt.Sign(user.ID.Hex(), jwt.TokenTypeRefresh, jwt.RefreshTokenTTL, handler.Secret)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem signing refresh token", err)
		return
	}

	var response = map[string]interface{}{
		"result":       user,
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	}

	handler.ResponseManager.RespondWithStatus(writer, response, status)
}

func (handler *Handler) respondWithValidationError(writer http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, validationErrors[0].Error(), validationErrors[0])
		return
	}

	handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Invalid request", err)
}
