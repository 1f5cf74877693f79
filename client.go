package contentrepo

import (
	"net/http"
	"time"
)

var UploadHttpTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   50,
	MaxConnsPerHost:       200,
	IdleConnTimeout:       90 * time.Second,
	ResponseHeaderTimeout: 90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 5 * time.Second,
}

// UploadHttpClient carries no overall timeout: large uploads can legitimately
// run for hours, and the stall watchdog bounds them instead.
var UploadHttpClient = &http.Client{
	Transport: UploadHttpTransport,
}
