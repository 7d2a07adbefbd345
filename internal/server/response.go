package server

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

var statusText = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	500: "Internal Server Error",
}

// Response is one HTTP response ready to be written to a connection.
// Every response carries the CORS headers and closes the connection.
type Response struct {
	Status  int
	Body    []byte
	headers map[string]string
}

// ErrorBody is the JSON shape of transport-level errors: unknown
// routes, method misses and bad request framing.
type ErrorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// FailureBody is the JSON shape of a rejected API operation. Clients
// read the message field, so business failures always carry it.
type FailureBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// JSON builds a response with a JSON-encoded body.
func JSON(status int, v any) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		return Error(500, "Failed to encode response", nil)
	}
	return &Response{
		Status:  status,
		Body:    body,
		headers: map[string]string{"Content-Type": "application/json"},
	}
}

// Error builds a transport-level JSON error response.
func Error(status int, message string, details any) *Response {
	body, _ := json.Marshal(ErrorBody{Error: message, Details: details})
	return &Response{
		Status:  status,
		Body:    body,
		headers: map[string]string{"Content-Type": "application/json"},
	}
}

// Failure builds the success/message body API handlers return when an
// operation is rejected.
func Failure(status int, message string) *Response {
	body, _ := json.Marshal(FailureBody{Success: false, Message: message})
	return &Response{
		Status:  status,
		Body:    body,
		headers: map[string]string{"Content-Type": "application/json"},
	}
}

// NoContent builds an empty 204 response, used for CORS preflight.
func NoContent() *Response {
	return &Response{Status: 204, headers: map[string]string{}}
}

// SetHeader adds or replaces a header, so a header name can never be
// emitted twice.
func (r *Response) SetHeader(name, value string) {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[name] = value
}

// Write serialises the status line, headers and body to the
// connection.
func (r *Response) Write(w io.Writer) error {
	reason := statusText[r.Status]
	if reason == "" {
		reason = "Unknown"
	}

	r.SetHeader("Access-Control-Allow-Origin", "*")
	r.SetHeader("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	r.SetHeader("Access-Control-Allow-Headers", "Content-Type, Authorization")
	r.SetHeader("Access-Control-Allow-Credentials", "true")
	r.SetHeader("Access-Control-Max-Age", "86400")
	r.SetHeader("Content-Length", strconv.Itoa(len(r.Body)))
	r.SetHeader("Connection", "close")

	names := make([]string, 0, len(r.headers))
	for name := range r.headers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := fmt.Sprintf("HTTP/1.1 %d %s\r\n", r.Status, reason)
	for _, name := range names {
		out += name + ": " + r.headers[name] + "\r\n"
	}
	out += "\r\n"

	if _, err := io.WriteString(w, out); err != nil {
		return err
	}
	_, err := w.Write(r.Body)
	return err
}
