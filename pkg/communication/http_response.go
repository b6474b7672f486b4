package communication

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taskistation/todo-backend/pkg/logger"
)

// ResponseManager handles errors that have to be returned to the user
type ResponseManager struct {
	Logger logger.Interface
}

// ErrNotFound is returned by repositories when no document matched
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when a resource belongs to another user
var ErrForbidden = errors.New("not authorized to access this resource")

// RespondWithError takes several arguments to return an error to the user and logs the error as well
func (r *ResponseManager) RespondWithError(writer http.ResponseWriter, status int, message string, err error) {
	if errors.Is(err, ErrNotFound) {
		status = http.StatusNotFound
	}

	if errors.Is(err, ErrForbidden) {
		status = http.StatusForbidden
		message = "Not authorized to access this resource"
	}

	if status >= 500 {
		r.Logger.Error(message, err)
	}

	writer.WriteHeader(status)
	var response = map[string]interface{}{
		"status": status,
		"error": map[string]interface{}{
			"message": message,
		},
	}

	if err != nil {
		response["err"] = err.Error()
	}

	binary, err := json.Marshal(response)
	if err != nil {
		r.Logger.Fatal(err)
	}

	_, err = writer.Write(binary)
	if err != nil {
		r.Logger.Error("Problem writing error response", err)
	}
}

// Respond takes an object and turns it into json and responds with it and a 200 HTTP status
func (r *ResponseManager) Respond(writer http.ResponseWriter, i interface{}) {
	r.RespondWithStatus(writer, i, http.StatusOK)
}

// RespondWithStatus responds with a specific status code
func (r *ResponseManager) RespondWithStatus(writer http.ResponseWriter, i interface{}, status int) {
	binary, err := json.Marshal(i)
	if err != nil {
		r.RespondWithError(writer, http.StatusInternalServerError,
			"Problem while marshalling response into json", err)
		return
	}

	writer.WriteHeader(status)
	_, err = writer.Write(binary)
	if err != nil {
		r.Logger.Error("Problem writing response", err)
		return
	}
}

// RespondWithNoContent sends a no content status code
func (r *ResponseManager) RespondWithNoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}
