// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package edge

import "strings"

// Event types an edge function can be attached to.
const (
	EventTypeViewerRequest = "viewer-request"
	EventTypeOriginRequest = "origin-request"
)

// Headers CloudFront does not let an edge function add or modify, for any
// event type.
var alwaysReadOnlyHeaders = map[string]struct{}{
	"connection":                    {},
	"expect":                        {},
	"keep-alive":                    {},
	"proxy-authenticate":            {},
	"proxy-authorization":           {},
	"proxy-connection":              {},
	"trailer":                       {},
	"upgrade":                       {},
	"x-accel-buffering":             {},
	"x-accel-charset":               {},
	"x-accel-limit-rate":            {},
	"x-accel-redirect":              {},
	"x-amzn-auth":                   {},
	"x-amzn-cf-billing":             {},
	"x-amzn-cf-id":                  {},
	"x-amzn-cf-xff":                 {},
	"x-amzn-errortype":              {},
	"x-amzn-fle-profile":            {},
	"x-amzn-header-count":           {},
	"x-amzn-header-order":           {},
	"x-amzn-lambda-integration-tag": {},
	"x-amzn-requestid":              {},
	"x-cache":                       {},
	"x-forwarded-proto":             {},
	"x-real-ip":                     {},
}

var alwaysReadOnlyPrefixes = []string{
	"x-amz-cf-",
	"x-edge-",
}

var viewerRequestReadOnlyHeaders = map[string]struct{}{
	"content-length":    {},
	"host":              {},
	"transfer-encoding": {},
	"via":               {},
}

var originRequestReadOnlyHeaders = map[string]struct{}{
	"accept-encoding":     {},
	"content-length":      {},
	"if-modified-since":   {},
	"if-none-match":       {},
	"if-range":            {},
	"if-unmodified-since": {},
	"transfer-encoding":   {},
	"via":                 {},
}

// IsReadOnlyHeader reports whether CloudFront rejects a function that sets
// name during eventType. An unknown event type only checks the headers that
// are read-only everywhere.
func IsReadOnlyHeader(name, eventType string) bool {
	name = strings.ToLower(name)
	if _, ok := alwaysReadOnlyHeaders[name]; ok {
		return true
	}
	for _, prefix := range alwaysReadOnlyPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	switch eventType {
	case EventTypeViewerRequest:
		_, ok := viewerRequestReadOnlyHeaders[name]
		return ok
	case EventTypeOriginRequest:
		_, ok := originRequestReadOnlyHeaders[name]
		return ok
	}
	return false
}
