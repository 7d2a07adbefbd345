package server

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// HandlerFunc handles one parsed request and returns the response.
type HandlerFunc func(r *Request) *Response

// Router matches requests by exact path and method. There are no path
// parameters; every variable input travels in the query string or the
// body.
type Router struct {
	routes map[string]map[string]HandlerFunc
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]map[string]HandlerFunc)}
}

// Handle registers a handler for a method and exact path.
func (rt *Router) Handle(method, path string, h HandlerFunc) {
	byMethod, ok := rt.routes[path]
	if !ok {
		byMethod = make(map[string]HandlerFunc)
		rt.routes[path] = byMethod
	}
	byMethod[strings.ToUpper(method)] = h
}

// Dispatch routes the request. OPTIONS always succeeds with 204 so
// browser preflight never depends on registered methods. A handler
// panic becomes a 500 carrying the panic message.
func (rt *Router) Dispatch(req *Request) (resp *Response) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[HTTP] Handler panic on %s %s: %v", req.Method, req.Path, rec)
			resp = Error(500, fmt.Sprint(rec), nil)
		}
	}()

	if req.Method == "OPTIONS" {
		return NoContent()
	}

	byMethod, ok := rt.routes[req.Path]
	if !ok {
		return Error(404, "Endpoint not found", nil)
	}

	h, ok := byMethod[req.Method]
	if !ok {
		resp := Error(405, "Method Not Allowed", nil)
		resp.SetHeader("Allow", allowedMethods(byMethod))
		return resp
	}
	return h(req)
}

func allowedMethods(byMethod map[string]HandlerFunc) string {
	methods := make([]string, 0, len(byMethod)+1)
	for m := range byMethod {
		methods = append(methods, m)
	}
	methods = append(methods, "OPTIONS")
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
