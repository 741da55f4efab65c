package main

import (
	"net/http"
	"time"
)

const externalHTTPTimeout = 90 * time.Second

var externalHTTPClient = &http.Client{
	Timeout: externalHTTPTimeout,
}
