package socket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStableID(t *testing.T) {
	addrs := []string{
		"127.0.0.1:8080",
		"[::1]:4000",
		"",
		"example.com:443",
		"not an address at all",
	}

	for _, addr := range addrs {
		t.Run(addr, func(t *testing.T) {
			id1 := StableID(addr)
			id2 := StableID(addr)
			assert.Equal(t, id1, id2, "same address should generate same id")
			assert.GreaterOrEqual(t, id1, int32(0))
		})
	}
}

func TestStableIDDistinguishesPorts(t *testing.T) {
	assert.NotEqual(t, StableID("127.0.0.1:8080"), StableID("127.0.0.1:8081"))
}

func TestSocketIDFromAddress(t *testing.T) {
	a := NewSocket(newFakeConn("tcp", "10.0.0.1:9000"))
	b := NewSocket(newFakeConn("tcp", "10.0.0.1:9000"))
	assert.Equal(t, a.ID(), b.ID())
	assert.Equal(t, StableID("10.0.0.1:9000"), a.ID())
}
