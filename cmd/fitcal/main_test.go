package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalBaseURL(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:8080": "http://127.0.0.1:8080",
		":8080":          "http://127.0.0.1:8080",
		"0.0.0.0:9000":   "http://127.0.0.1:9000",
		"[::]:9000":      "http://127.0.0.1:9000",
		"fitcal.lan:80":  "http://fitcal.lan:80",
		"localhost":      "http://localhost",
	}
	for in, want := range cases {
		assert.Equal(t, want, localBaseURL(in), in)
	}
}
