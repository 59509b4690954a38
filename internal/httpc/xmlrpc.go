// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package httpc

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/oops"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/loop"
)

// XMLRPC calls methods on one XML-RPC endpoint.
type XMLRPC struct {
	client   *Client
	location string
}

// XMLRPC returns a caller for the endpoint at location.
func (c *Client) XMLRPC(location string) *XMLRPC {
	return &XMLRPC{client: c, location: location}
}

type methodCall struct {
	XMLName xml.Name   `xml:"methodCall"`
	Method  string     `xml:"methodName"`
	Params  []xmlParam `xml:"params>param"`
}

type methodResponse struct {
	XMLName xml.Name   `xml:"methodResponse"`
	Params  []xmlParam `xml:"params>param"`
	Fault   *xmlValue  `xml:"fault>value"`
}

type xmlParam struct {
	Value xmlValue `xml:"value"`
}

type xmlValue struct {
	Int      *string    `xml:"int,omitempty"`
	I4       *string    `xml:"i4,omitempty"`
	Double   *string    `xml:"double,omitempty"`
	Boolean  *string    `xml:"boolean,omitempty"`
	String   *string    `xml:"string,omitempty"`
	Base64   *string    `xml:"base64,omitempty"`
	DateTime *string    `xml:"dateTime.iso8601,omitempty"`
	Array    *xmlArray  `xml:"array,omitempty"`
	Struct   *xmlStruct `xml:"struct,omitempty"`
	Nil      *struct{}  `xml:"nil,omitempty"`
	Text     string     `xml:",chardata"`
}

type xmlArray struct {
	Values []xmlValue `xml:"data>value"`
}

type xmlStruct struct {
	Members []xmlMember `xml:"member"`
}

type xmlMember struct {
	Name  string   `xml:"name"`
	Value xmlValue `xml:"value"`
}

// Call invokes method with args and returns the decoded result. A fault
// response is returned as a NETWORK error carrying faultCode and
// faultString.
func (x *XMLRPC) Call(ctx context.Context, method string, args ...any) (any, error) {
	if method == "" {
		return nil, fault.InvalidArgument("xmlrpc method name is empty")
	}
	call := methodCall{Method: method}
	for i, arg := range args {
		v, err := encodeValue(arg)
		if err != nil {
			return nil, oops.Code(fault.CodeInvalidArgument).
				With("method", method).
				With("arg", i).
				Wrap(err)
		}
		call.Params = append(call.Params, xmlParam{Value: v})
	}
	body, err := xml.Marshal(call)
	if err != nil {
		return nil, oops.Code(fault.CodeInvalidArgument).Wrapf(err, "encode xmlrpc call")
	}
	body = append([]byte(xml.Header), body...)

	resp, err := x.client.Do(ctx, http.MethodPost, x.location, Options{
		Headers: map[string]string{"Content-Type": "text/xml"},
		Body:    body,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, oops.Code(fault.CodeNetwork).
			In("xmlrpc").
			With("method", method).
			With("status", resp.StatusCode).
			Errorf("xmlrpc %s: %d %s", method, resp.StatusCode, resp.Reason)
	}

	var mr methodResponse
	if err := xml.Unmarshal([]byte(resp.Text), &mr); err != nil {
		return nil, oops.Code(fault.CodeNetwork).
			In("xmlrpc").
			With("method", method).
			Wrapf(err, "decode xmlrpc response")
	}
	if mr.Fault != nil {
		detail, _ := decodeValue(*mr.Fault)
		m, _ := detail.(map[string]any)
		return nil, oops.Code(fault.CodeNetwork).
			In("xmlrpc").
			With("method", method).
			With("fault_code", m["faultCode"]).
			Errorf("xmlrpc fault: %v", m["faultString"])
	}
	if len(mr.Params) == 0 {
		return nil, nil
	}
	return decodeValue(mr.Params[0].Value)
}

// Async performs Call on a separate goroutine and queues done on lp with
// the result. If the loop has stopped the result is discarded.
func (x *XMLRPC) Async(ctx context.Context, lp *loop.Loop, method string, args []any, done func(ctx context.Context, result any, err error) error) {
	x.client.wg.Add(1)
	go func() {
		defer x.client.wg.Done()
		result, err := x.Call(ctx, method, args...)
		enqueueErr := lp.Go("xmlrpc "+method, func(ctx context.Context) error {
			return done(ctx, result, err)
		})
		if enqueueErr != nil {
			x.client.logger.Debug("discarding xmlrpc result",
				"method", method,
				"error", enqueueErr)
		}
	}()
}

func encodeValue(v any) (xmlValue, error) {
	str := func(s string) *string { return &s }
	switch val := v.(type) {
	case nil:
		return xmlValue{Nil: &struct{}{}}, nil
	case bool:
		if val {
			return xmlValue{Boolean: str("1")}, nil
		}
		return xmlValue{Boolean: str("0")}, nil
	case int:
		return xmlValue{Int: str(strconv.Itoa(val))}, nil
	case int32:
		return xmlValue{Int: str(strconv.FormatInt(int64(val), 10))}, nil
	case int64:
		if val > math.MaxInt32 || val < math.MinInt32 {
			return xmlValue{Double: str(strconv.FormatInt(val, 10))}, nil
		}
		return xmlValue{Int: str(strconv.FormatInt(val, 10))}, nil
	case float32:
		return xmlValue{Double: str(strconv.FormatFloat(float64(val), 'f', -1, 32))}, nil
	case float64:
		return xmlValue{Double: str(strconv.FormatFloat(val, 'f', -1, 64))}, nil
	case string:
		return xmlValue{String: str(val)}, nil
	case []byte:
		return xmlValue{Base64: str(base64.StdEncoding.EncodeToString(val))}, nil
	case []any:
		arr := &xmlArray{Values: make([]xmlValue, 0, len(val))}
		for _, item := range val {
			ev, err := encodeValue(item)
			if err != nil {
				return xmlValue{}, err
			}
			arr.Values = append(arr.Values, ev)
		}
		return xmlValue{Array: arr}, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		st := &xmlStruct{}
		for _, k := range keys {
			ev, err := encodeValue(val[k])
			if err != nil {
				return xmlValue{}, err
			}
			st.Members = append(st.Members, xmlMember{Name: k, Value: ev})
		}
		return xmlValue{Struct: st}, nil
	default:
		return xmlValue{}, oops.Errorf("cannot encode %T as xmlrpc value", v)
	}
}

func decodeValue(v xmlValue) (any, error) {
	switch {
	case v.Int != nil:
		return parseInt(*v.Int)
	case v.I4 != nil:
		return parseInt(*v.I4)
	case v.Double != nil:
		f, err := strconv.ParseFloat(strings.TrimSpace(*v.Double), 64)
		if err != nil {
			return nil, oops.Wrapf(err, "decode double")
		}
		return f, nil
	case v.Boolean != nil:
		switch strings.TrimSpace(*v.Boolean) {
		case "1":
			return true, nil
		case "0":
			return false, nil
		}
		return nil, oops.Errorf("decode boolean %q", *v.Boolean)
	case v.String != nil:
		return *v.String, nil
	case v.Base64 != nil:
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(*v.Base64))
		if err != nil {
			return nil, oops.Wrapf(err, "decode base64")
		}
		return raw, nil
	case v.DateTime != nil:
		return strings.TrimSpace(*v.DateTime), nil
	case v.Array != nil:
		out := make([]any, 0, len(v.Array.Values))
		for _, item := range v.Array.Values {
			dv, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, dv)
		}
		return out, nil
	case v.Struct != nil:
		out := make(map[string]any, len(v.Struct.Members))
		for _, m := range v.Struct.Members {
			dv, err := decodeValue(m.Value)
			if err != nil {
				return nil, oops.With("member", m.Name).Wrap(err)
			}
			out[m.Name] = dv
		}
		return out, nil
	case v.Nil != nil:
		return nil, nil
	default:
		return v.Text, nil
	}
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, oops.Wrapf(err, "decode int")
	}
	return n, nil
}
