// Package minihttp speaks just enough HTTP/1.1 over a raw TCP connection to
// send one request and return the unparsed response text.
package minihttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/kleeedolinux/easysocket/debug"
)

// BuildRequest formats a request with Connection: close. A non-empty body
// adds Content-Type and Content-Length headers.
func BuildRequest(method, path, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", method, path)
	b.WriteString("Host: localhost\r\n")
	b.WriteString("Connection: close\r\n")
	if body != "" || method == "POST" {
		b.WriteString("Content-Type: text/plain\r\n")
		b.WriteString("Content-Length: " + strconv.Itoa(len(body)) + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.Bytes()
}

// Get returns the raw response, headers and body together.
func Get(ctx context.Context, addr, path string) (string, error) {
	return Do(ctx, addr, BuildRequest("GET", path, ""))
}

func Post(ctx context.Context, addr, path, body string) (string, error) {
	return Do(ctx, addr, BuildRequest("POST", path, body))
}

// Do writes req on a new connection and reads until the remote closes it.
func Do(ctx context.Context, addr string, req []byte) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	debug.Printf("minihttp: sending %d byte request to %s", len(req), addr)
	if _, err := conn.Write(req); err != nil {
		return "", fmt.Errorf("write request: %w", err)
	}

	resp, err := io.ReadAll(conn)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(resp), nil
}
