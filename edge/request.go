// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package edge

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrNoRequest is returned for an event that does not carry exactly one
// request record.
var ErrNoRequest = errors.New("event does not contain a request")

// Event is a viewer or origin request event as delivered to an edge function.
type Event struct {
	Records []Record `json:"Records"`
}

type Record struct {
	CF CloudFront `json:"cf"`
}

type CloudFront struct {
	Config  EventConfig `json:"config"`
	Request *Request    `json:"request"`
}

// EventConfig identifies the distribution and invocation.
type EventConfig struct {
	DistributionDomainName string `json:"distributionDomainName,omitempty"`
	DistributionID         string `json:"distributionId,omitempty"`
	EventType              string `json:"eventType,omitempty"`
	RequestID              string `json:"requestId,omitempty"`
}

// Request is the request descriptor an edge handler receives and returns.
type Request struct {
	ClientIP    string  `json:"clientIp,omitempty"`
	Headers     Headers `json:"headers"`
	Method      string  `json:"method,omitempty"`
	QueryString string  `json:"querystring,omitempty"`
	URI         string  `json:"uri"`
}

// Header is one value of a header. Key preserves the original casing.
type Header struct {
	Key   string `json:"key,omitempty"`
	Value string `json:"value"`
}

// Headers maps a lower-case header name to its values.
type Headers map[string][]Header

// Set replaces all values of name with value.
func (h Headers) Set(name, value string) {
	h[strings.ToLower(name)] = []Header{{Key: name, Value: value}}
}

// Get returns the first value of name, or the empty string.
func (h Headers) Get(name string) string {
	values := h[strings.ToLower(name)]
	if len(values) == 0 {
		return ""
	}
	return values[0].Value
}

// HeadersFromHTTP converts an http.Header.
func HeadersFromHTTP(hdr http.Header) Headers {
	out := make(Headers, len(hdr))
	for name, values := range hdr {
		lower := strings.ToLower(name)
		for _, v := range values {
			out[lower] = append(out[lower], Header{Key: name, Value: v})
		}
	}
	return out
}

// ApplyTo replaces the values in hdr for every header in h.
func (h Headers) ApplyTo(hdr http.Header) {
	for name, values := range h {
		hdr.Del(name)
		for _, v := range values {
			hdr.Add(name, v.Value)
		}
	}
}

// Request returns the single request carried by the event.
func (e *Event) Request() (*Request, error) {
	if e == nil || len(e.Records) != 1 || e.Records[0].CF.Request == nil {
		return nil, ErrNoRequest
	}
	return e.Records[0].CF.Request, nil
}

// Config returns the invocation metadata of the event.
func (e *Event) Config() EventConfig {
	if e == nil || len(e.Records) == 0 {
		return EventConfig{}
	}
	return e.Records[0].CF.Config
}

// NewEvent wraps req in a single record event.
func NewEvent(req *Request, cfg EventConfig) *Event {
	return &Event{Records: []Record{{CF: CloudFront{Config: cfg, Request: req}}}}
}

// DecodeEvent decodes a generic event, such as the result of unmarshaling
// JSON into an interface{}, into an Event. Fields the handler does not use,
// like a request body, are ignored.
func DecodeEvent(raw interface{}) (*Event, error) {
	var ev Event
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &ev,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed decoding event: %w", err)
	}
	return &ev, nil
}
