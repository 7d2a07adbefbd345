package server

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

// Request is one parsed HTTP/1.1 request.
type Request struct {
	ID         string
	Method     string
	Path       string
	Query      url.Values
	Proto      string
	Headers    map[string]string
	Body       []byte
	RemoteAddr string
}

// Header returns a header value by case-insensitive name.
func (r *Request) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// QueryParam returns the first value of a query parameter.
func (r *Request) QueryParam(name string) string {
	return r.Query.Get(name)
}

// ReadRequest parses one request from the connection. The head is read
// until a blank line, tolerating bare-LF clients, then exactly
// Content-Length body bytes are consumed.
func ReadRequest(br *bufio.Reader) (*Request, error) {
	head, err := readHead(br)
	if err != nil {
		return nil, err
	}

	lines := splitLines(head)
	if len(lines) == 0 {
		return nil, errors.New("empty request")
	}

	req, err := parseRequestLine(lines[0])
	if err != nil {
		return nil, err
	}

	req.Headers = make(map[string]string, len(lines)-1)
	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		req.Headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	if cl := req.Headers["content-length"]; cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad Content-Length %q", cl)
		}
		req.Body = make([]byte, n)
		if _, err := io.ReadFull(br, req.Body); err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
	}
	return req, nil
}

// readHead consumes bytes until the first blank line. Both CRLFCRLF
// and LFLF terminate the head.
func readHead(br *bufio.Reader) ([]byte, error) {
	var head []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		head = append(head, b)
		if bytes.HasSuffix(head, []byte("\r\n\r\n")) || bytes.HasSuffix(head, []byte("\n\n")) {
			return head, nil
		}
	}
}

func splitLines(head []byte) []string {
	raw := strings.Split(strings.ReplaceAll(string(head), "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func parseRequestLine(line string) (*Request, error) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed request line %q", line)
	}

	req := &Request{Method: parts[0], Proto: parts[2]}

	target := parts[1]
	path, rawQuery, _ := strings.Cut(target, "?")
	decoded, err := url.PathUnescape(path)
	if err != nil {
		return nil, fmt.Errorf("bad path %q", path)
	}
	req.Path = decoded

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("bad query %q", rawQuery)
	}
	req.Query = values
	return req, nil
}
