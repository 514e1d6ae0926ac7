/*
Copyright © 2026 Marlon van Hawi
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Non-fatal conditions are dropped or answered with an error notice to
// the sender. Unauthenticated is fatal to the connection attempt at
// handshake time.
var (
	errPartyNotFound   = errors.New("party not found")
	errInvalidState    = errors.New("invalid state")
	errUnauthenticated = errors.New("unauthenticated")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
