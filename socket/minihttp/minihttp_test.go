package minihttp

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   string
	}{
		{
			name:   "get",
			method: "GET",
			path:   "/",
			want:   "GET / HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n",
		},
		{
			name:   "post",
			method: "POST",
			path:   "/submit",
			body:   "héllo",
			want: "POST /submit HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n" +
				"Content-Type: text/plain\r\nContent-Length: 6\r\n\r\nhéllo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(BuildRequest(tt.method, tt.path, tt.body)))
		})
	}
}

func TestGetReturnsRawResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "Hello, HTTP!")
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := Get(ctx, srv.Listener.Addr().String(), "/")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 200 OK"))
	assert.Contains(t, resp, "Hello, HTTP!")
}

func TestPostSendsBodyAndLength(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	type captured struct {
		headers map[string]string
		body    string
	}
	got := make(chan captured, 1)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		c := captured{headers: make(map[string]string)}
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			if line == "" {
				break
			}
			k, v, _ := strings.Cut(line, ": ")
			c.headers[k] = v
		}
		n, _ := strconv.Atoi(c.headers["Content-Length"])
		body := make([]byte, n)
		if _, err := io.ReadFull(r, body); err != nil {
			return
		}
		c.body = string(body)
		got <- c
		_, _ = io.WriteString(conn, "HTTP/1.1 201 Created\r\nContent-Length: 2\r\n\r\nok")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := Post(ctx, ln.Addr().String(), "/items", "payload")
	require.NoError(t, err)
	assert.Contains(t, resp, "201 Created")
	assert.True(t, strings.HasSuffix(resp, "ok"))

	c := <-got
	assert.Equal(t, "7", c.headers["Content-Length"])
	assert.Equal(t, "close", c.headers["Connection"])
	assert.Equal(t, "payload", c.body)
}

func TestDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Get(context.Background(), addr, "/")
	assert.Error(t, err)
}
